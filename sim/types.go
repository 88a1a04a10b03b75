package sim

// Simulation states
const (
	StateIdle      = "idle"
	StateMoving    = "moving"
	StatePlacing   = "placing"
	StateCompleted = "completed"
)

// Telemetry holds the instantaneous motion readings. Values are overwritten
// on every update; no history is kept beyond the current value.
type Telemetry struct {
	Velocity          float64 `json:"velocity"`
	MechanismVelocity float64 `json:"mechanism_velocity"`
}

// SequenceEntry records one completed step of a placement procedure.
type SequenceEntry struct {
	Step      string  `json:"step"`
	TimeTaken float64 `json:"time_taken"`
}

// PlacementRecord is the archived result of one completed placement,
// newest-first in the engine's history.
type PlacementRecord struct {
	ConeIndex int             `json:"cone_index"`
	TotalTime float64         `json:"total_time"`
	Logs      []SequenceEntry `json:"logs"`
}

// Stats holds the cumulative counters for the current run.
type Stats struct {
	ConesPlaced      int     `json:"cones_placed"`
	DistanceTraveled float64 `json:"distance_traveled"`
	ETASeconds       float64 `json:"eta_seconds"`
}
