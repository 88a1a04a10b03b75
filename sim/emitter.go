package sim

import "conepilot/geometry"

// EventEmitter is the interface the simulation engine uses to publish
// observable state. The engine package implements this via an adapter to
// avoid import cycles. Implementations are invoked on the engine's timer
// goroutine while the run lock is held and must not call back into the
// engine.
type EventEmitter interface {
	EmitStateChanged(oldState, newState string)
	EmitPoseUpdated(pose geometry.Pose)
	EmitTelemetryUpdated(t Telemetry)
	EmitStepCompleted(coneIndex int, entry SequenceEntry)
	EmitPlacementRecorded(rec PlacementRecord)
	EmitStatsUpdated(s Stats)
}
