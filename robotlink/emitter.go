package robotlink

import "conepilot/geometry"

// EventEmitter is the interface the robot link uses to emit connection and
// pose events. The engine package implements this via an adapter to avoid
// import cycles.
type EventEmitter interface {
	EmitRobotConnected(baseURL string)
	EmitRobotDisconnected(err error)
	EmitRobotPose(pose geometry.Pose)
}
