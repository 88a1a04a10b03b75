package messaging

import (
	"conepilot/geometry"
	"conepilot/sim"
)

// TelemetryReport is the periodic uplink snapshot for one robot node.
type TelemetryReport struct {
	NodeID     string        `json:"node_id"`
	State      string        `json:"state"`
	Pose       geometry.Pose `json:"pose"`
	Telemetry  sim.Telemetry `json:"telemetry"`
	Stats      sim.Stats     `json:"stats"`
	Placements int           `json:"placements"`
	Timestamp  string        `json:"timestamp"`
}

// RunNotice announces a run lifecycle transition.
type RunNotice struct {
	NodeID    string `json:"node_id"`
	Event     string `json:"event"` // started, stopped, completed
	SessionID int64  `json:"session_id"`
	Timestamp string `json:"timestamp"`
}

// RemoteCommand is an inbound run-control request from the fleet broker.
type RemoteCommand struct {
	NodeID    string `json:"node_id"`
	Command   string `json:"command"` // start, stop, reset
	SessionID int64  `json:"session_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// NodeHeartbeat is the periodic liveness message.
type NodeHeartbeat struct {
	NodeID   string `json:"node_id"`
	Hostname string `json:"hostname"`
	Version  string `json:"version"`
	Uptime   int64  `json:"uptime"`
}
