package engine

import (
	"fmt"
	"strconv"
	"sync"

	"conepilot/config"
	"conepilot/geometry"
	"conepilot/planner"
	"conepilot/robotlink"
	"conepilot/sim"
	"conepilot/store"
)

// LogFunc is the logging callback signature.
type LogFunc func(format string, args ...interface{})

// Engine centralizes all business logic and orchestrates subsystems.
type Engine struct {
	cfg        *config.Config
	configPath string
	db         *store.DB
	logFn      LogFunc
	debugFn    LogFunc

	sim   *sim.Engine
	robot *robotlink.Client

	runMu           sync.Mutex
	activeSessionID int64

	Events   *EventBus
	stopChan chan struct{}
}

// Config holds the parameters needed to create an Engine.
type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	LogFunc    LogFunc
	Debug      bool
}

// New creates a new Engine. Call Start() to initialize and wire subsystems.
func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = func(string, ...interface{}) {}
	}
	debugFn := LogFunc(func(string, ...interface{}) {})
	if c.Debug {
		debugFn = logFn
	}
	return &Engine{
		cfg:        c.AppConfig,
		configPath: c.ConfigPath,
		db:         c.DB,
		logFn:      logFn,
		debugFn:    debugFn,
		Events:     NewEventBus(),
		stopChan:   make(chan struct{}),
	}
}

// Start creates the subsystems and wires event handlers.
func (e *Engine) Start() {
	e.sim = sim.New(&simEmitter{bus: e.Events}, sim.Config{
		LinearSpeed:    e.cfg.Sim.LinearSpeed,
		RotateDuration: e.cfg.Sim.RotateDuration,
		TelemetryTick:  e.cfg.Sim.TelemetryTick,
	})
	e.robot = robotlink.NewClient(&robotEmitter{bus: e.Events}, e.cfg.Robot.PollRate)

	e.wireEventHandlers()

	if e.cfg.Robot.AutoConnect && e.cfg.Robot.URL != "" {
		if err := e.robot.Connect(e.cfg.Robot.URL); err != nil {
			e.logFn("robot bridge unreachable at startup: %v", err)
		}
	}

	e.logFn("Engine started: site=%s robot=%s", e.cfg.Site, e.cfg.RobotID)
}

// Stop shuts down all subsystems gracefully.
func (e *Engine) Stop() {
	select {
	case <-e.stopChan:
	default:
		close(e.stopChan)
	}

	if e.sim != nil {
		e.sim.Stop()
	}
	if e.robot != nil {
		e.robot.Disconnect()
	}

	e.logFn("Engine stopped")
}

// PlanSession computes and persists the visit order for a session's cones.
// Returns the cones in planned order.
func (e *Engine) PlanSession(sessionID int64) ([]store.Cone, error) {
	sess, err := e.db.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %d: %w", sessionID, err)
	}
	cones, err := e.db.ListCones(sessionID)
	if err != nil {
		return nil, fmt.Errorf("list cones: %w", err)
	}
	if len(cones) == 0 {
		return nil, fmt.Errorf("session %d has no cones to plan", sessionID)
	}

	origin := geometry.Point{X: sess.OriginX, Y: sess.OriginY}
	ordered := planner.Plan(conePoints(cones), origin)

	byID := make(map[string]store.Cone, len(cones))
	for _, c := range cones {
		byID[strconv.FormatInt(c.ID, 10)] = c
	}

	result := make([]store.Cone, 0, len(ordered))
	for i, p := range ordered {
		c := byID[p.ID]
		if err := e.db.SetVisitOrder(c.ID, i); err != nil {
			return nil, fmt.Errorf("set visit order for cone %d: %w", c.ID, err)
		}
		order := i
		c.VisitOrder = &order
		result = append(result, c)
	}
	if err := e.db.TouchSession(sessionID); err != nil {
		e.logFn("touch session %d after planning: %v", sessionID, err)
	}

	full := append([]geometry.Point{origin}, ordered...)
	e.Events.Emit(Event{Type: EventSessionPlanned, Payload: SessionPlannedEvent{
		SessionID:  sessionID,
		ConeCount:  len(ordered),
		PathLength: geometry.PathLength(full),
	}})
	e.debugFn("planned session %d: %d cones, %.2f m", sessionID, len(ordered), geometry.PathLength(full))

	return result, nil
}

// StartRun begins simulating a session's planned path. Sessions that have
// not been planned yet are planned first.
func (e *Engine) StartRun(sessionID int64) error {
	path, err := e.sessionPath(sessionID)
	if err != nil {
		return err
	}

	e.runMu.Lock()
	e.activeSessionID = sessionID
	e.runMu.Unlock()

	if err := e.sim.Start(path); err != nil {
		return err
	}
	e.Events.Emit(Event{Type: EventRunStarted, Payload: RunEvent{SessionID: sessionID}})
	e.logFn("run started: session=%d waypoints=%d", sessionID, len(path)-1)
	return nil
}

// StopRun aborts the active simulation run.
func (e *Engine) StopRun() {
	e.sim.Stop()
	e.runMu.Lock()
	sessionID := e.activeSessionID
	e.runMu.Unlock()
	e.Events.Emit(Event{Type: EventRunStopped, Payload: RunEvent{SessionID: sessionID}})
}

// ResetRun returns the simulation to its initial idle state.
func (e *Engine) ResetRun() error {
	return e.sim.Reset()
}

// DispatchToRobot sends a session's planned path to the hardware bridge as
// a waypoint queue.
func (e *Engine) DispatchToRobot(sessionID int64) error {
	if !e.robot.IsConnected() {
		return fmt.Errorf("robot bridge not connected")
	}
	path, err := e.sessionPath(sessionID)
	if err != nil {
		return err
	}
	// The bridge drives from its own pose; the origin waypoint is not sent.
	if !e.robot.SendWaypoints(path[1:]) {
		return fmt.Errorf("send waypoints to bridge")
	}
	e.logFn("dispatched session %d to robot: %d waypoints", sessionID, len(path)-1)
	return nil
}

// sessionPath builds the origin-prefixed drive path for a session,
// planning the visit order if it is missing or stale.
func (e *Engine) sessionPath(sessionID int64) ([]geometry.Point, error) {
	sess, err := e.db.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %d: %w", sessionID, err)
	}
	cones, err := e.db.ListCones(sessionID)
	if err != nil {
		return nil, fmt.Errorf("list cones: %w", err)
	}
	if !planned(cones) {
		if _, err := e.PlanSession(sessionID); err != nil {
			return nil, err
		}
		cones, err = e.db.ListCones(sessionID)
		if err != nil {
			return nil, fmt.Errorf("list cones: %w", err)
		}
	}

	ordered := make([]geometry.Point, len(cones))
	for _, c := range cones {
		if *c.VisitOrder < 0 || *c.VisitOrder >= len(cones) {
			return nil, fmt.Errorf("cone %d has visit order %d outside path", c.ID, *c.VisitOrder)
		}
		ordered[*c.VisitOrder] = geometry.Point{
			ID: strconv.FormatInt(c.ID, 10), X: c.X, Y: c.Y,
		}
	}
	origin := geometry.Point{X: sess.OriginX, Y: sess.OriginY}
	return append([]geometry.Point{origin}, ordered...), nil
}

func planned(cones []store.Cone) bool {
	if len(cones) == 0 {
		return false
	}
	for _, c := range cones {
		if c.VisitOrder == nil {
			return false
		}
	}
	return true
}

func conePoints(cones []store.Cone) []geometry.Point {
	pts := make([]geometry.Point, len(cones))
	for i, c := range cones {
		pts[i] = geometry.Point{ID: strconv.FormatInt(c.ID, 10), X: c.X, Y: c.Y}
	}
	return pts
}

// ActiveSessionID returns the session of the current (or last) run.
func (e *Engine) ActiveSessionID() int64 {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.activeSessionID
}

// DB returns the database handle.
func (e *Engine) DB() *store.DB { return e.db }

// AppConfig returns the app config.
func (e *Engine) AppConfig() *config.Config { return e.cfg }

// ConfigPath returns the config file path.
func (e *Engine) ConfigPath() string { return e.configPath }

// Sim returns the simulation engine.
func (e *Engine) Sim() *sim.Engine { return e.sim }

// Robot returns the hardware bridge client.
func (e *Engine) Robot() *robotlink.Client { return e.robot }
