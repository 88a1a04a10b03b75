package messaging

import (
	"log"
	"sync"
	"time"

	"conepilot/geometry"
	"conepilot/sim"
)

// Publisher is the part of the messaging client the reporter needs.
type Publisher interface {
	PublishJSON(topic string, v interface{}) error
}

// RunReporter accumulates simulation observations and periodically publishes
// a telemetry snapshot. Run lifecycle transitions are sent immediately on the
// event topic.
type RunReporter struct {
	client         Publisher
	nodeID         string
	telemetryTopic string
	eventTopic     string
	interval       time.Duration

	mu         sync.Mutex
	state      string
	pose       geometry.Pose
	telemetry  sim.Telemetry
	stats      sim.Stats
	placements int
	dirty      bool

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRunReporter creates a reporter for the given node identity.
func NewRunReporter(client Publisher, nodeID, telemetryTopic, eventTopic string, interval time.Duration) *RunReporter {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &RunReporter{
		client:         client,
		nodeID:         nodeID,
		telemetryTopic: telemetryTopic,
		eventTopic:     eventTopic,
		interval:       interval,
		state:          sim.StateIdle,
		stopCh:         make(chan struct{}),
	}
}

// ObserveState records the latest simulation state.
func (rr *RunReporter) ObserveState(state string) {
	rr.mu.Lock()
	rr.state = state
	rr.dirty = true
	rr.mu.Unlock()
}

// ObservePose records the latest pose.
func (rr *RunReporter) ObservePose(pose geometry.Pose) {
	rr.mu.Lock()
	rr.pose = pose
	rr.dirty = true
	rr.mu.Unlock()
}

// ObserveTelemetry records the latest motion readings.
func (rr *RunReporter) ObserveTelemetry(t sim.Telemetry) {
	rr.mu.Lock()
	rr.telemetry = t
	rr.dirty = true
	rr.mu.Unlock()
}

// ObserveStats records the latest run counters.
func (rr *RunReporter) ObserveStats(s sim.Stats) {
	rr.mu.Lock()
	rr.stats = s
	rr.dirty = true
	rr.mu.Unlock()
}

// RecordPlacement counts a completed placement toward the next snapshot.
func (rr *RunReporter) RecordPlacement() {
	rr.mu.Lock()
	rr.placements++
	rr.dirty = true
	rr.mu.Unlock()
}

// NotifyRun publishes a run lifecycle transition immediately.
func (rr *RunReporter) NotifyRun(event string, sessionID int64) {
	notice := RunNotice{
		NodeID:    rr.nodeID,
		Event:     event,
		SessionID: sessionID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := rr.client.PublishJSON(rr.eventTopic, notice); err != nil {
		log.Printf("run_reporter: send %s notice: %v", event, err)
	}
}

// Start begins the periodic flush loop.
func (rr *RunReporter) Start() {
	go rr.loop()
}

// Stop flushes any pending snapshot and halts the loop.
func (rr *RunReporter) Stop() {
	rr.stopOnce.Do(func() {
		close(rr.stopCh)
		rr.flush()
	})
}

func (rr *RunReporter) loop() {
	ticker := time.NewTicker(rr.interval)
	defer ticker.Stop()
	for {
		select {
		case <-rr.stopCh:
			return
		case <-ticker.C:
			rr.flush()
		}
	}
}

func (rr *RunReporter) flush() {
	rr.mu.Lock()
	if !rr.dirty {
		rr.mu.Unlock()
		return
	}
	report := TelemetryReport{
		NodeID:     rr.nodeID,
		State:      rr.state,
		Pose:       rr.pose,
		Telemetry:  rr.telemetry,
		Stats:      rr.stats,
		Placements: rr.placements,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	rr.placements = 0
	rr.dirty = false
	rr.mu.Unlock()

	if err := rr.client.PublishJSON(rr.telemetryTopic, report); err != nil {
		log.Printf("run_reporter: send snapshot: %v", err)
	}
}
