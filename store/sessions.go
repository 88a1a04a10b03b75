package store

import "time"

// FieldSession is one planning session: an origin plus a set of cone
// placement targets.
type FieldSession struct {
	ID        int64     `json:"id"`
	UUID      string    `json:"uuid"`
	Name      string    `json:"name"`
	OriginX   float64   `json:"origin_x"`
	OriginY   float64   `json:"origin_y"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func scanSession(s *FieldSession, scanner interface{ Scan(...interface{}) error }) error {
	var createdAt, updatedAt string
	if err := scanner.Scan(&s.ID, &s.UUID, &s.Name, &s.OriginX, &s.OriginY, &createdAt, &updatedAt); err != nil {
		return err
	}
	s.CreatedAt = scanTime(createdAt)
	s.UpdatedAt = scanTime(updatedAt)
	return nil
}

const sessionColumns = `id, uuid, name, origin_x, origin_y, created_at, updated_at`

func (db *DB) CreateSession(uuid, name string, originX, originY float64) (int64, error) {
	res, err := db.Exec(`INSERT INTO field_sessions (uuid, name, origin_x, origin_y) VALUES (?, ?, ?, ?)`,
		uuid, name, originX, originY)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (db *DB) GetSession(id int64) (*FieldSession, error) {
	s := &FieldSession{}
	if err := scanSession(s, db.QueryRow(`SELECT `+sessionColumns+` FROM field_sessions WHERE id = ?`, id)); err != nil {
		return nil, err
	}
	return s, nil
}

func (db *DB) GetSessionByUUID(uuid string) (*FieldSession, error) {
	s := &FieldSession{}
	if err := scanSession(s, db.QueryRow(`SELECT `+sessionColumns+` FROM field_sessions WHERE uuid = ?`, uuid)); err != nil {
		return nil, err
	}
	return s, nil
}

func (db *DB) ListSessions() ([]FieldSession, error) {
	rows, err := db.Query(`SELECT ` + sessionColumns + ` FROM field_sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []FieldSession
	for rows.Next() {
		var s FieldSession
		if err := scanSession(&s, rows); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (db *DB) UpdateSession(id int64, name string, originX, originY float64) error {
	_, err := db.Exec(`UPDATE field_sessions SET name=?, origin_x=?, origin_y=?, updated_at=datetime('now','localtime') WHERE id=?`,
		name, originX, originY, id)
	return err
}

func (db *DB) TouchSession(id int64) error {
	_, err := db.Exec(`UPDATE field_sessions SET updated_at=datetime('now','localtime') WHERE id=?`, id)
	return err
}

func (db *DB) DeleteSession(id int64) error {
	_, err := db.Exec(`DELETE FROM field_sessions WHERE id=?`, id)
	return err
}
