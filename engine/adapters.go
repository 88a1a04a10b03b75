package engine

import (
	"conepilot/geometry"
	"conepilot/sim"
)

// simEmitter adapts the engine's EventBus to the sim.EventEmitter interface.
type simEmitter struct {
	bus *EventBus
}

func (e *simEmitter) EmitStateChanged(oldState, newState string) {
	e.bus.Emit(Event{Type: EventSimStateChanged, Payload: SimStateChangedEvent{
		OldState: oldState, NewState: newState,
	}})
}

func (e *simEmitter) EmitPoseUpdated(pose geometry.Pose) {
	e.bus.Emit(Event{Type: EventSimPose, Payload: SimPoseEvent{Pose: pose}})
}

func (e *simEmitter) EmitTelemetryUpdated(t sim.Telemetry) {
	e.bus.Emit(Event{Type: EventSimTelemetry, Payload: SimTelemetryEvent{Telemetry: t}})
}

func (e *simEmitter) EmitStepCompleted(coneIndex int, entry sim.SequenceEntry) {
	e.bus.Emit(Event{Type: EventSimStepCompleted, Payload: SimStepCompletedEvent{
		ConeIndex: coneIndex, Entry: entry,
	}})
}

func (e *simEmitter) EmitPlacementRecorded(rec sim.PlacementRecord) {
	e.bus.Emit(Event{Type: EventSimPlacement, Payload: SimPlacementEvent{Record: rec}})
}

func (e *simEmitter) EmitStatsUpdated(s sim.Stats) {
	e.bus.Emit(Event{Type: EventSimStats, Payload: SimStatsEvent{Stats: s}})
}

// robotEmitter adapts the engine's EventBus to the robotlink.EventEmitter interface.
type robotEmitter struct {
	bus *EventBus
}

func (e *robotEmitter) EmitRobotConnected(baseURL string) {
	e.bus.Emit(Event{Type: EventRobotConnected, Payload: RobotEvent{
		BaseURL: baseURL, Connected: true,
	}})
}

func (e *robotEmitter) EmitRobotDisconnected(err error) {
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	e.bus.Emit(Event{Type: EventRobotDisconnected, Payload: RobotEvent{
		Connected: false, Error: errStr,
	}})
}

func (e *robotEmitter) EmitRobotPose(pose geometry.Pose) {
	e.bus.Emit(Event{Type: EventRobotPose, Payload: RobotPoseEvent{Pose: pose}})
}
