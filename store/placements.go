package store

import "time"

// Placement is one archived placement record from a simulation run.
// StepLog holds the per-step sequence log as JSON.
type Placement struct {
	ID         int64     `json:"id"`
	SessionID  int64     `json:"session_id"`
	ConeIndex  int       `json:"cone_index"`
	TotalTime  float64   `json:"total_time"`
	StepLog    string    `json:"step_log"`
	RecordedAt time.Time `json:"recorded_at"`
}

func (db *DB) InsertPlacement(sessionID int64, coneIndex int, totalTime float64, stepLog string) (int64, error) {
	res, err := db.Exec(`INSERT INTO placements (session_id, cone_index, total_time, step_log) VALUES (?, ?, ?, ?)`,
		sessionID, coneIndex, totalTime, stepLog)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListPlacements returns a session's archived placements, newest first.
func (db *DB) ListPlacements(sessionID int64) ([]Placement, error) {
	rows, err := db.Query(`SELECT id, session_id, cone_index, total_time, step_log, recorded_at FROM placements WHERE session_id = ? ORDER BY id DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var placements []Placement
	for rows.Next() {
		var p Placement
		var recordedAt string
		if err := rows.Scan(&p.ID, &p.SessionID, &p.ConeIndex, &p.TotalTime, &p.StepLog, &recordedAt); err != nil {
			return nil, err
		}
		p.RecordedAt = scanTime(recordedAt)
		placements = append(placements, p)
	}
	return placements, rows.Err()
}

// ClearPlacements drops a session's archived history.
func (db *DB) ClearPlacements(sessionID int64) error {
	_, err := db.Exec(`DELETE FROM placements WHERE session_id=?`, sessionID)
	return err
}
