package sim

import (
	"math"
	"sync"
	"testing"
	"time"

	"conepilot/geometry"
)

// recordingEmitter counts and stores everything the engine emits.
type recordingEmitter struct {
	mu         sync.Mutex
	states     []string
	poses      []geometry.Pose
	telemetry  []Telemetry
	steps      []SequenceEntry
	placements []PlacementRecord
	stats      []Stats
	total      int
}

func (r *recordingEmitter) EmitStateChanged(oldState, newState string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, oldState+"->"+newState)
	r.total++
}

func (r *recordingEmitter) EmitPoseUpdated(pose geometry.Pose) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.poses = append(r.poses, pose)
	r.total++
}

func (r *recordingEmitter) EmitTelemetryUpdated(t Telemetry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.telemetry = append(r.telemetry, t)
	r.total++
}

func (r *recordingEmitter) EmitStepCompleted(coneIndex int, entry SequenceEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, entry)
	r.total++
}

func (r *recordingEmitter) EmitPlacementRecorded(rec PlacementRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placements = append(r.placements, rec)
	r.total++
}

func (r *recordingEmitter) EmitStatsUpdated(s Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = append(r.stats, s)
	r.total++
}

func (r *recordingEmitter) eventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

func testEngine(t *testing.T) (*Engine, *recordingEmitter, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	em := &recordingEmitter{}
	eng := New(em, Config{
		LinearSpeed:    0.5,
		RotateDuration: 800 * time.Millisecond,
		TelemetryTick:  100 * time.Millisecond,
		Clock:          clock,
		Seed:           1,
	})
	return eng, em, clock
}

// threePointPath has segment lengths 3.0 and 4.0 meters.
func threePointPath() []geometry.Point {
	return []geometry.Point{
		{ID: "origin", X: 0, Y: 0},
		{ID: "c1", X: 3, Y: 0},
		{ID: "c2", X: 3, Y: 4},
	}
}

func TestStartRejectsShortPath(t *testing.T) {
	eng, _, _ := testEngine(t)

	if err := eng.Start(nil); err == nil {
		t.Error("Start(nil) should fail")
	}
	if err := eng.Start([]geometry.Point{{X: 1, Y: 1}}); err == nil {
		t.Error("Start with one point should fail")
	}
	if eng.State() != StateIdle {
		t.Errorf("state = %s, want idle", eng.State())
	}
}

func TestRunCompletes(t *testing.T) {
	eng, em, clock := testEngine(t)

	if err := eng.Start(threePointPath()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if eng.State() != StateMoving {
		t.Fatalf("state after start = %s, want moving", eng.State())
	}

	// 2 rotations (0.8s each), translations 6s + 8s, 2 placements (3.3s each).
	clock.Advance(30 * time.Second)

	if eng.State() != StateCompleted {
		t.Fatalf("state = %s, want completed", eng.State())
	}

	history := eng.History()
	if len(history) != 2 {
		t.Fatalf("history records = %d, want 2", len(history))
	}
	// Newest first: cone 2 then cone 1.
	if history[0].ConeIndex != 2 || history[1].ConeIndex != 1 {
		t.Errorf("history cone order = [%d %d], want [2 1]", history[0].ConeIndex, history[1].ConeIndex)
	}
	for _, rec := range history {
		if len(rec.Logs) != len(placementSteps) {
			t.Errorf("cone %d logs = %d, want %d", rec.ConeIndex, len(rec.Logs), len(placementSteps))
		}
		if rec.TotalTime <= 0 {
			t.Errorf("cone %d total time = %v, want > 0", rec.ConeIndex, rec.TotalTime)
		}
	}

	stats := eng.Stats()
	if stats.ConesPlaced != 2 {
		t.Errorf("cones placed = %d, want 2", stats.ConesPlaced)
	}
	if math.Abs(stats.DistanceTraveled-7.0) > 1e-9 {
		t.Errorf("distance = %v, want 7.0", stats.DistanceTraveled)
	}
	if stats.ETASeconds != 0 {
		t.Errorf("eta = %v, want 0", stats.ETASeconds)
	}

	tel := eng.Telemetry()
	if tel.Velocity != 0 || tel.MechanismVelocity != 0 {
		t.Errorf("telemetry = %+v, want zero", tel)
	}

	em.mu.Lock()
	defer em.mu.Unlock()
	if len(em.placements) != 2 {
		t.Errorf("placement events = %d, want 2", len(em.placements))
	}
	wantSteps := 2 * len(placementSteps)
	if len(em.steps) != wantSteps {
		t.Errorf("step events = %d, want %d", len(em.steps), wantSteps)
	}
}

func TestStepLogNamesAndDurations(t *testing.T) {
	eng, em, clock := testEngine(t)

	if err := eng.Start(threePointPath()); err != nil {
		t.Fatalf("start: %v", err)
	}
	clock.Advance(30 * time.Second)

	em.mu.Lock()
	defer em.mu.Unlock()
	for i, entry := range em.steps[:len(placementSteps)] {
		spec := placementSteps[i]
		if entry.Step != spec.Name {
			t.Errorf("step %d = %q, want %q", i, entry.Step, spec.Name)
		}
		if math.Abs(entry.TimeTaken-spec.Duration.Seconds()) > 0.2 {
			t.Errorf("step %q time = %v, want ~%v", entry.Step, entry.TimeTaken, spec.Duration.Seconds())
		}
	}
}

func TestStopMidMoving(t *testing.T) {
	eng, em, clock := testEngine(t)

	if err := eng.Start(threePointPath()); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Partway through the first translation.
	clock.Advance(2 * time.Second)
	if eng.State() != StateMoving {
		t.Fatalf("state = %s, want moving", eng.State())
	}

	eng.Stop()
	if eng.State() != StateIdle {
		t.Fatalf("state after stop = %s, want idle", eng.State())
	}

	// Stop broadcasts the cleared telemetry so observers drop the
	// in-flight velocity.
	em.mu.Lock()
	last := em.telemetry[len(em.telemetry)-1]
	em.mu.Unlock()
	if last != (Telemetry{}) {
		t.Errorf("telemetry after stop = %+v, want zero", last)
	}

	before := em.eventCount()
	clock.Advance(60 * time.Second)
	if after := em.eventCount(); after != before {
		t.Errorf("%d events emitted after stop", after-before)
	}
	if len(eng.History()) != 0 {
		t.Errorf("history = %d records, want 0", len(eng.History()))
	}
}

func TestStopMidPlacing(t *testing.T) {
	eng, em, clock := testEngine(t)

	if err := eng.Start(threePointPath()); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Past rotate (0.8s) + translate (6s), into the first placement.
	clock.Advance(7 * time.Second)
	if eng.State() != StatePlacing {
		t.Fatalf("state = %s, want placing", eng.State())
	}

	eng.Stop()
	if eng.State() != StateIdle {
		t.Fatalf("state after stop = %s, want idle", eng.State())
	}

	// No partial record for the interrupted placement.
	if len(eng.History()) != 0 {
		t.Errorf("history = %d records, want 0", len(eng.History()))
	}
	if len(eng.SequenceLog()) != 0 {
		t.Errorf("sequence log = %d entries, want 0", len(eng.SequenceLog()))
	}

	before := em.eventCount()
	clock.Advance(60 * time.Second)
	if after := em.eventCount(); after != before {
		t.Errorf("%d events emitted after stop", after-before)
	}
}

func TestStopWhenIdleIsNoOp(t *testing.T) {
	eng, em, _ := testEngine(t)
	eng.Stop()
	if eng.State() != StateIdle {
		t.Errorf("state = %s, want idle", eng.State())
	}
	if em.eventCount() != 0 {
		t.Errorf("%d events emitted, want 0", em.eventCount())
	}
}

func TestResetRejectedWhileRunning(t *testing.T) {
	eng, _, clock := testEngine(t)

	if err := eng.Start(threePointPath()); err != nil {
		t.Fatalf("start: %v", err)
	}
	clock.Advance(time.Second)

	if err := eng.Reset(); err == nil {
		t.Error("Reset during a run should fail")
	}
	if eng.State() != StateMoving {
		t.Errorf("state = %s, want moving", eng.State())
	}
}

func TestResetClearsEverything(t *testing.T) {
	eng, _, clock := testEngine(t)

	if err := eng.Start(threePointPath()); err != nil {
		t.Fatalf("start: %v", err)
	}
	clock.Advance(30 * time.Second)
	if eng.State() != StateCompleted {
		t.Fatalf("state = %s, want completed", eng.State())
	}

	if err := eng.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if eng.State() != StateIdle {
		t.Errorf("state = %s, want idle", eng.State())
	}
	if s := eng.Stats(); s.ConesPlaced != 0 || s.DistanceTraveled != 0 || s.ETASeconds != 0 {
		t.Errorf("stats not cleared: %+v", s)
	}
	if len(eng.History()) != 0 {
		t.Error("history not cleared")
	}
	if len(eng.Path()) != 0 {
		t.Error("path not cleared")
	}
}

func TestStartCancelsPreviousRun(t *testing.T) {
	eng, _, clock := testEngine(t)

	if err := eng.Start(threePointPath()); err != nil {
		t.Fatalf("start: %v", err)
	}
	clock.Advance(2 * time.Second)

	// Restarting replaces the run entirely.
	if err := eng.Start(threePointPath()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if got := eng.Stats().DistanceTraveled; got != 0 {
		t.Errorf("distance after restart = %v, want 0", got)
	}

	clock.Advance(30 * time.Second)
	if eng.State() != StateCompleted {
		t.Fatalf("state = %s, want completed", eng.State())
	}
	if len(eng.History()) != 2 {
		t.Errorf("history = %d records, want 2 from the second run only", len(eng.History()))
	}
}

func TestPoseInterpolatesAlongSegment(t *testing.T) {
	eng, _, clock := testEngine(t)

	path := []geometry.Point{{X: 0, Y: 0}, {X: 5, Y: 0}}
	if err := eng.Start(path); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Past the 0.8s rotation, 2s into a 10s translation at 0.5 m/s.
	clock.Advance(2800 * time.Millisecond)
	pose := eng.Pose()
	if pose.X <= 0 || pose.X >= 5 {
		t.Errorf("pose.X = %v, want strictly between 0 and 5", pose.X)
	}
	if pose.Y != 0 {
		t.Errorf("pose.Y = %v, want 0", pose.Y)
	}
	if tel := eng.Telemetry(); tel.Velocity != 0.5 {
		t.Errorf("velocity = %v, want 0.5", tel.Velocity)
	}
}

func TestETACountsDownToZero(t *testing.T) {
	eng, _, clock := testEngine(t)

	if err := eng.Start(threePointPath()); err != nil {
		t.Fatalf("start: %v", err)
	}
	initial := eng.Stats().ETASeconds
	if initial <= 0 {
		t.Fatalf("initial eta = %v, want > 0", initial)
	}

	// After the first placement finishes, the estimate must have dropped.
	clock.Advance(11 * time.Second)
	mid := eng.Stats().ETASeconds
	if mid >= initial {
		t.Errorf("eta after first placement = %v, want < %v", mid, initial)
	}

	clock.Advance(30 * time.Second)
	if eta := eng.Stats().ETASeconds; eta != 0 {
		t.Errorf("eta at completion = %v, want 0", eta)
	}
}
