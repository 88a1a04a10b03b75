package sim

import "time"

// StepSpec describes one step of the placement procedure: a name, a fixed
// duration, and the nominal mechanism velocity reported while it runs.
// Jitter is the relative spread applied to each telemetry reading.
type StepSpec struct {
	Name         string        `json:"name"`
	Duration     time.Duration `json:"duration"`
	MechVelocity float64       `json:"mech_velocity"`
	Jitter       float64       `json:"jitter"`
}

// placementSteps is the fixed ordered procedure executed at every waypoint.
// Durations are tuned to the cone arm on the field robot; the total is what
// the ETA estimate charges per remaining waypoint.
var placementSteps = []StepSpec{
	{Name: "align_chassis", Duration: 600 * time.Millisecond, MechVelocity: 0.20, Jitter: 0.05},
	{Name: "lower_arm", Duration: 900 * time.Millisecond, MechVelocity: 0.35, Jitter: 0.08},
	{Name: "release_cone", Duration: 500 * time.Millisecond, MechVelocity: 0.10, Jitter: 0.03},
	{Name: "raise_arm", Duration: 900 * time.Millisecond, MechVelocity: 0.35, Jitter: 0.08},
	{Name: "confirm_placement", Duration: 400 * time.Millisecond, MechVelocity: 0, Jitter: 0},
}

// PlacementSteps returns a copy of the procedure step table.
func PlacementSteps() []StepSpec {
	out := make([]StepSpec, len(placementSteps))
	copy(out, placementSteps)
	return out
}

// placementDuration is the total nominal time of one placement procedure.
func placementDuration() time.Duration {
	var total time.Duration
	for _, s := range placementSteps {
		total += s.Duration
	}
	return total
}
