package engine

import (
	"time"

	"conepilot/geometry"
	"conepilot/sim"
)

// EventType identifies the kind of event emitted by the Engine.
type EventType int

const (
	// Simulation events
	EventSimStateChanged EventType = iota + 1
	EventSimPose
	EventSimTelemetry
	EventSimStepCompleted
	EventSimPlacement
	EventSimStats

	// Robot link events
	EventRobotConnected
	EventRobotDisconnected
	EventRobotPose

	// Session events
	EventSessionPlanned
	EventRunStarted
	EventRunStopped
	EventRunCompleted
)

// Event is the envelope emitted by the Engine's EventBus.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   interface{}
}

// SimStateChangedEvent is emitted on simulation state transitions.
type SimStateChangedEvent struct {
	OldState string `json:"old_state"`
	NewState string `json:"new_state"`
}

// SimPoseEvent carries the simulated robot pose.
type SimPoseEvent struct {
	Pose geometry.Pose `json:"pose"`
}

// SimTelemetryEvent carries the instantaneous motion readings.
type SimTelemetryEvent struct {
	Telemetry sim.Telemetry `json:"telemetry"`
}

// SimStepCompletedEvent is emitted after each placement procedure step.
type SimStepCompletedEvent struct {
	ConeIndex int               `json:"cone_index"`
	Entry     sim.SequenceEntry `json:"entry"`
}

// SimPlacementEvent is emitted when a cone placement finishes.
type SimPlacementEvent struct {
	Record sim.PlacementRecord `json:"record"`
}

// SimStatsEvent carries the cumulative run counters.
type SimStatsEvent struct {
	Stats sim.Stats `json:"stats"`
}

// RobotEvent is emitted for hardware bridge connection state changes.
type RobotEvent struct {
	BaseURL   string `json:"base_url"`
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

// RobotPoseEvent carries odometry polled from the hardware bridge.
type RobotPoseEvent struct {
	Pose geometry.Pose `json:"pose"`
}

// SessionPlannedEvent is emitted when a session's visit order is computed.
type SessionPlannedEvent struct {
	SessionID  int64   `json:"session_id"`
	ConeCount  int     `json:"cone_count"`
	PathLength float64 `json:"path_length"`
}

// RunEvent is emitted when a simulation run starts, stops, or completes.
type RunEvent struct {
	SessionID int64 `json:"session_id"`
}
