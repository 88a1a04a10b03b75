package messaging

import (
	"log"
	"os"
	"sync"
	"time"
)

// Heartbeater publishes node liveness on the event topic.
type Heartbeater struct {
	client    Publisher
	nodeID    string
	version   string
	topic     string
	interval  time.Duration
	startTime time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewHeartbeater creates a heartbeater for the given node identity.
func NewHeartbeater(client Publisher, nodeID, version, topic string) *Heartbeater {
	return &Heartbeater{
		client:   client,
		nodeID:   nodeID,
		version:  version,
		topic:    topic,
		interval: 60 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start sends an initial heartbeat and begins the loop.
func (h *Heartbeater) Start() {
	h.startTime = time.Now()
	h.send()
	go h.loop()
}

// Stop halts the heartbeat loop.
func (h *Heartbeater) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}

func (h *Heartbeater) send() {
	hostname, _ := os.Hostname()
	hb := NodeHeartbeat{
		NodeID:   h.nodeID,
		Hostname: hostname,
		Version:  h.version,
		Uptime:   int64(time.Since(h.startTime).Seconds()),
	}
	if err := h.client.PublishJSON(h.topic, hb); err != nil {
		log.Printf("heartbeater: send heartbeat: %v", err)
	}
}

func (h *Heartbeater) loop() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.send()
		}
	}
}
