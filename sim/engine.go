package sim

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"conepilot/geometry"
)

// Config holds the tuning parameters for a simulation engine.
type Config struct {
	// LinearSpeed is the fixed translation speed in m/s.
	LinearSpeed float64
	// RotateDuration is the fixed heading-alignment time per segment,
	// independent of turn angle.
	RotateDuration time.Duration
	// TelemetryTick is the interval between pose/telemetry updates while a
	// phase is active.
	TelemetryTick time.Duration
	// Clock defaults to the wall clock.
	Clock Clock
	// Seed fixes the mechanism-velocity jitter source; 0 seeds from the
	// current time.
	Seed int64
}

// Engine replays a planned path as a timed sequence of MOVE and PLACE
// phases. One run is active at a time; starting a new run cancels any run
// in flight. All deferred callbacks are guarded by a run generation counter
// so Stop invalidates them synchronously.
type Engine struct {
	mu      sync.Mutex
	emitter EventEmitter
	clock   Clock
	rng     *rand.Rand

	linearSpeed float64
	rotateDur   time.Duration
	tick        time.Duration

	run   int
	timer Timer

	state     string
	path      []geometry.Point
	segment   int
	pose      geometry.Pose
	telemetry Telemetry
	stats     Stats
	seqLog    []SequenceEntry
	history   []PlacementRecord
}

// New creates a simulation engine in the idle state.
func New(emitter EventEmitter, cfg Config) *Engine {
	if cfg.LinearSpeed <= 0 {
		cfg.LinearSpeed = 0.5
	}
	if cfg.RotateDuration <= 0 {
		cfg.RotateDuration = 800 * time.Millisecond
	}
	if cfg.TelemetryTick <= 0 {
		cfg.TelemetryTick = 100 * time.Millisecond
	}
	if cfg.Clock == nil {
		cfg.Clock = NewClock()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		emitter:     emitter,
		clock:       cfg.Clock,
		rng:         rand.New(rand.NewSource(seed)),
		linearSpeed: cfg.LinearSpeed,
		rotateDur:   cfg.RotateDuration,
		tick:        cfg.TelemetryTick,
		state:       StateIdle,
	}
}

// Start begins a new run over path, which must hold the origin plus at
// least one target. Any run already in flight is cancelled first. Stats,
// the step log, and the placement history are reset for the new run.
func (e *Engine) Start(path []geometry.Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(path) < 2 {
		return fmt.Errorf("path needs origin plus at least one target, got %d points", len(path))
	}

	e.cancelLocked()

	e.path = make([]geometry.Point, len(path))
	copy(e.path, path)
	e.segment = 0
	e.pose = geometry.Pose{X: path[0].X, Y: path[0].Y}
	e.telemetry = Telemetry{}
	e.stats = Stats{ETASeconds: e.estimateETA(0, len(path)-1)}
	e.seqLog = nil
	e.history = nil

	e.setState(StateMoving)
	e.emitter.EmitPoseUpdated(e.pose)
	e.emitter.EmitStatsUpdated(e.stats)
	e.beginRotate()
	return nil
}

// Stop cancels the run in flight and returns to idle. All pending timers
// for the run are invalidated before Stop returns; no event for the
// cancelled run is emitted afterward. An in-progress placement leaves no
// history record. Stopping an idle or completed engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateMoving && e.state != StatePlacing {
		return
	}
	e.cancelLocked()
	e.telemetry = Telemetry{}
	e.seqLog = nil
	e.emitter.EmitTelemetryUpdated(e.telemetry)
	e.setState(StateIdle)
}

// Reset clears stats, telemetry, the step log, and the history, ready for a
// new Start. It is rejected while a run is active.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle && e.state != StateCompleted {
		return fmt.Errorf("cannot reset while %s", e.state)
	}
	e.path = nil
	e.pose = geometry.Pose{}
	e.telemetry = Telemetry{}
	e.stats = Stats{}
	e.seqLog = nil
	e.history = nil
	e.setState(StateIdle)
	e.emitter.EmitStatsUpdated(e.stats)
	return nil
}

// State returns the current simulation state.
func (e *Engine) State() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Pose returns the current interpolated pose.
func (e *Engine) Pose() geometry.Pose {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pose
}

// Telemetry returns the current instantaneous readings.
func (e *Engine) Telemetry() Telemetry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.telemetry
}

// Stats returns the cumulative counters for the current run.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// History returns the placement records for the current run, newest first.
func (e *Engine) History() []PlacementRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]PlacementRecord, len(e.history))
	copy(out, e.history)
	return out
}

// SequenceLog returns the step log of the placement currently in progress.
func (e *Engine) SequenceLog() []SequenceEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]SequenceEntry, len(e.seqLog))
	copy(out, e.seqLog)
	return out
}

// Path returns the path of the current run.
func (e *Engine) Path() []geometry.Point {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]geometry.Point, len(e.path))
	copy(out, e.path)
	return out
}

// cancelLocked invalidates the active run. Every deferred callback checks
// the run generation under the lock, so after this returns no stale
// callback can mutate state or emit.
func (e *Engine) cancelLocked() {
	e.run++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Engine) setState(state string) {
	if e.state == state {
		return
	}
	old := e.state
	e.state = state
	e.emitter.EmitStateChanged(old, state)
}

// schedule arms the single pending timer for the active run. The callback
// runs under the engine lock and is dropped if the run has been cancelled
// or superseded in the meantime.
func (e *Engine) schedule(d time.Duration, fn func()) {
	run := e.run
	e.timer = e.clock.AfterFunc(d, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.run != run {
			return
		}
		fn()
	})
}

// nextDelay clamps the telemetry tick to the time left in the phase.
func (e *Engine) nextDelay(remaining time.Duration) time.Duration {
	if remaining < e.tick {
		return remaining
	}
	return e.tick
}

// estimateETA charges full rotate+translate time for every segment from
// firstUndriven on, plus the nominal procedure time per pending placement.
func (e *Engine) estimateETA(firstUndriven, pendingPlacements int) float64 {
	var total time.Duration
	for i := firstUndriven; i+1 < len(e.path); i++ {
		dist := geometry.Dist(e.path[i], e.path[i+1])
		total += e.rotateDur + time.Duration(dist/e.linearSpeed*float64(time.Second))
	}
	total += time.Duration(pendingPlacements) * placementDuration()
	return total.Seconds()
}

// --- MOVE phase ---

func (e *Engine) beginRotate() {
	from := e.path[e.segment]
	to := e.path[e.segment+1]
	start := e.pose.Theta
	diff := geometry.NormalizeAngle(geometry.Bearing(from, to) - start)
	begun := e.clock.Now()

	var step func()
	step = func() {
		elapsed := e.clock.Now().Sub(begun)
		if elapsed >= e.rotateDur {
			e.pose.Theta = geometry.NormalizeAngle(start + diff)
			e.emitter.EmitPoseUpdated(e.pose)
			e.beginTranslate()
			return
		}
		frac := float64(elapsed) / float64(e.rotateDur)
		e.pose.Theta = geometry.NormalizeAngle(start + diff*frac)
		e.emitter.EmitPoseUpdated(e.pose)
		e.schedule(e.nextDelay(e.rotateDur-elapsed), step)
	}
	e.schedule(e.nextDelay(e.rotateDur), step)
}

func (e *Engine) beginTranslate() {
	from := e.path[e.segment]
	to := e.path[e.segment+1]
	length := geometry.Dist(from, to)
	dur := time.Duration(length / e.linearSpeed * float64(time.Second))
	begun := e.clock.Now()

	e.telemetry.Velocity = e.linearSpeed
	e.emitter.EmitTelemetryUpdated(e.telemetry)

	var step func()
	step = func() {
		elapsed := e.clock.Now().Sub(begun)
		if elapsed >= dur {
			e.pose.X = to.X
			e.pose.Y = to.Y
			e.emitter.EmitPoseUpdated(e.pose)

			e.telemetry.Velocity = 0
			e.emitter.EmitTelemetryUpdated(e.telemetry)

			e.stats.DistanceTraveled += length
			e.stats.ConesPlaced = e.segment + 1
			e.stats.ETASeconds = e.estimateETA(e.segment+1, len(e.path)-1-e.segment)
			e.emitter.EmitStatsUpdated(e.stats)

			e.setState(StatePlacing)
			e.beginPlacement()
			return
		}
		frac := float64(elapsed) / float64(dur)
		e.pose.X = from.X + (to.X-from.X)*frac
		e.pose.Y = from.Y + (to.Y-from.Y)*frac
		e.emitter.EmitPoseUpdated(e.pose)
		e.schedule(e.nextDelay(dur-elapsed), step)
	}
	e.schedule(e.nextDelay(dur), step)
}

// --- PLACE phase ---

func (e *Engine) beginPlacement() {
	e.seqLog = nil
	e.runStep(0, e.segment+1, e.clock.Now())
}

func (e *Engine) runStep(idx, cone int, placementBegun time.Time) {
	spec := placementSteps[idx]
	begun := e.clock.Now()

	var step func()
	step = func() {
		elapsed := e.clock.Now().Sub(begun)
		if elapsed >= spec.Duration {
			// Mechanism velocity resets between steps.
			e.telemetry.MechanismVelocity = 0
			e.emitter.EmitTelemetryUpdated(e.telemetry)

			entry := SequenceEntry{Step: spec.Name, TimeTaken: elapsed.Seconds()}
			e.seqLog = append(e.seqLog, entry)
			e.emitter.EmitStepCompleted(cone, entry)

			if idx+1 < len(placementSteps) {
				e.runStep(idx+1, cone, placementBegun)
				return
			}
			e.finishPlacement(cone, placementBegun)
			return
		}
		e.telemetry.MechanismVelocity = e.mechVelocity(spec)
		e.emitter.EmitTelemetryUpdated(e.telemetry)
		e.schedule(e.nextDelay(spec.Duration-elapsed), step)
	}
	e.schedule(e.nextDelay(spec.Duration), step)
}

func (e *Engine) finishPlacement(cone int, placementBegun time.Time) {
	logs := make([]SequenceEntry, len(e.seqLog))
	copy(logs, e.seqLog)
	rec := PlacementRecord{
		ConeIndex: cone,
		TotalTime: e.clock.Now().Sub(placementBegun).Seconds(),
		Logs:      logs,
	}
	// Newest first.
	e.history = append([]PlacementRecord{rec}, e.history...)
	e.seqLog = nil
	e.emitter.EmitPlacementRecorded(rec)

	if cone == len(e.path)-1 {
		e.telemetry = Telemetry{}
		e.emitter.EmitTelemetryUpdated(e.telemetry)
		e.stats.ETASeconds = 0
		e.emitter.EmitStatsUpdated(e.stats)
		e.setState(StateCompleted)
		return
	}

	e.stats.ETASeconds = e.estimateETA(cone, len(e.path)-1-cone)
	e.emitter.EmitStatsUpdated(e.stats)

	e.segment++
	e.setState(StateMoving)
	e.beginRotate()
}

func (e *Engine) mechVelocity(spec StepSpec) float64 {
	if spec.MechVelocity == 0 {
		return 0
	}
	return spec.MechVelocity * (1 + spec.Jitter*(2*e.rng.Float64()-1))
}
