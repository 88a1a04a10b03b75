package store

import "database/sql"

// Cone is one placement target inside a field session. VisitOrder is nil
// until the session has been planned.
type Cone struct {
	ID         int64   `json:"id"`
	SessionID  int64   `json:"session_id"`
	Label      string  `json:"label"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	VisitOrder *int    `json:"visit_order"`
}

func scanCone(c *Cone, scanner interface{ Scan(...interface{}) error }) error {
	var visitOrder sql.NullInt64
	if err := scanner.Scan(&c.ID, &c.SessionID, &c.Label, &c.X, &c.Y, &visitOrder); err != nil {
		return err
	}
	if visitOrder.Valid {
		v := int(visitOrder.Int64)
		c.VisitOrder = &v
	}
	return nil
}

const coneColumns = `id, session_id, label, x, y, visit_order`

func (db *DB) CreateCone(sessionID int64, label string, x, y float64) (int64, error) {
	res, err := db.Exec(`INSERT INTO cones (session_id, label, x, y) VALUES (?, ?, ?, ?)`,
		sessionID, label, x, y)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (db *DB) GetCone(id int64) (*Cone, error) {
	c := &Cone{}
	if err := scanCone(c, db.QueryRow(`SELECT `+coneColumns+` FROM cones WHERE id = ?`, id)); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCones returns a session's cones in insertion order.
func (db *DB) ListCones(sessionID int64) ([]Cone, error) {
	rows, err := db.Query(`SELECT `+coneColumns+` FROM cones WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cones []Cone
	for rows.Next() {
		var c Cone
		if err := scanCone(&c, rows); err != nil {
			return nil, err
		}
		cones = append(cones, c)
	}
	return cones, rows.Err()
}

func (db *DB) UpdateCone(id int64, label string, x, y float64) error {
	_, err := db.Exec(`UPDATE cones SET label=?, x=?, y=?, visit_order=NULL WHERE id=?`, label, x, y, id)
	return err
}

// SetVisitOrder records a cone's position in the planned path.
func (db *DB) SetVisitOrder(id int64, order int) error {
	_, err := db.Exec(`UPDATE cones SET visit_order=? WHERE id=?`, order, id)
	return err
}

// ClearVisitOrder invalidates a session's planned ordering.
func (db *DB) ClearVisitOrder(sessionID int64) error {
	_, err := db.Exec(`UPDATE cones SET visit_order=NULL WHERE session_id=?`, sessionID)
	return err
}

func (db *DB) DeleteCone(id int64) error {
	_, err := db.Exec(`DELETE FROM cones WHERE id=?`, id)
	return err
}
