// Package robotlink maintains a best-effort HTTP connection to the cone
// bridge running on the robot. It is independent of the simulation clock: a
// user may drive the robot manually with velocity commands or hand the
// planned path to the onboard controller. Command failures are logged, never
// returned as panics or escalated to unrelated callers.
package robotlink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"conepilot/geometry"
)

// BridgeStatus mirrors the bridge's GET /status response.
type BridgeStatus struct {
	Connected     bool          `json:"connected"`
	Navigating    bool          `json:"navigating"`
	Pose          geometry.Pose `json:"pose"`
	WaypointIndex int           `json:"waypoint_index"`
	WaypointTotal int           `json:"waypoint_total"`
}

// Client talks to one cone bridge. At most one pose poll loop runs per
// client; Connect tears down any previous connection before establishing a
// new one. A failed poll marks the client disconnected and stops polling;
// recovery requires a fresh Connect.
type Client struct {
	mu      sync.Mutex
	client  http.Client
	emitter EventEmitter

	pollRate time.Duration

	baseURL   string
	connected bool
	running   bool
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewClient creates a disconnected robot link client.
func NewClient(emitter EventEmitter, pollRate time.Duration) *Client {
	if pollRate <= 0 {
		pollRate = 200 * time.Millisecond
	}
	return &Client{
		client:   http.Client{Timeout: 3 * time.Second},
		emitter:  emitter,
		pollRate: pollRate,
	}
}

// Connect probes the bridge at baseURL and, on success, starts the pose
// poll loop. An existing connection is fully torn down first so no poll
// goroutine leaks.
func (c *Client) Connect(baseURL string) error {
	c.Disconnect()

	baseURL = strings.TrimRight(baseURL, "/")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/status", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("bridge unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge status returned %d", resp.StatusCode)
	}

	c.mu.Lock()
	c.baseURL = baseURL
	c.connected = true
	c.running = true
	c.stopChan = make(chan struct{})
	stop := c.stopChan
	c.mu.Unlock()

	c.emitter.EmitRobotConnected(baseURL)

	c.wg.Add(1)
	go c.pollLoop(stop)
	return nil
}

// Disconnect stops polling and clears connection state. It is idempotent.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.running {
		close(c.stopChan)
		c.running = false
	}
	wasConnected := c.connected
	c.connected = false
	c.mu.Unlock()

	c.wg.Wait()

	if wasConnected {
		c.emitter.EmitRobotDisconnected(nil)
	}
}

// IsConnected reports whether the bridge link is up.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// BaseURL returns the bridge URL of the current (or last) connection.
func (c *Client) BaseURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseURL
}

func (c *Client) pollLoop(stop chan struct{}) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.pollRate)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.pollPose(); err != nil {
				c.mu.Lock()
				wasConnected := c.connected
				c.connected = false
				c.running = false
				c.mu.Unlock()
				if wasConnected {
					log.Printf("robot link: pose poll failed, disconnecting: %v", err)
					c.emitter.EmitRobotDisconnected(err)
				}
				return
			}
		}
	}
}

func (c *Client) pollPose() error {
	c.mu.Lock()
	base := c.baseURL
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", base+"/odom", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("odom returned %d", resp.StatusCode)
	}
	var pose geometry.Pose
	if err := json.NewDecoder(resp.Body).Decode(&pose); err != nil {
		return fmt.Errorf("decode odom: %w", err)
	}

	// A Disconnect may have raced the read; drop the stale pose.
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if connected {
		c.emitter.EmitRobotPose(pose)
	}
	return nil
}

// SendVelocity sends a fire-and-forget velocity command. When disconnected
// it is a logged no-op; send failures are swallowed so manual driving never
// crashes the caller on a network blip.
func (c *Client) SendVelocity(linear, angular float64) {
	c.mu.Lock()
	connected, base := c.connected, c.baseURL
	c.mu.Unlock()
	if !connected {
		log.Printf("robot link: dropping cmd_vel, not connected")
		return
	}
	body, _ := json.Marshal(map[string]float64{"linear": linear, "angular": angular})
	if err := c.post(base+"/cmd_vel", body); err != nil {
		log.Printf("robot link: cmd_vel: %v", err)
	}
}

// SendWaypoints hands the planned path to the robot's onboard controller.
func (c *Client) SendWaypoints(path []geometry.Point) bool {
	c.mu.Lock()
	connected, base := c.connected, c.baseURL
	c.mu.Unlock()
	if !connected {
		log.Printf("robot link: dropping waypoints, not connected")
		return false
	}
	type wirePoint struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	waypoints := make([]wirePoint, len(path))
	for i, p := range path {
		waypoints[i] = wirePoint{X: p.X, Y: p.Y}
	}
	body, _ := json.Marshal(map[string]interface{}{"waypoints": waypoints})
	if err := c.post(base+"/waypoints", body); err != nil {
		log.Printf("robot link: waypoints: %v", err)
		return false
	}
	return true
}

// NavigateTo asks the robot to drive itself to a single point.
func (c *Client) NavigateTo(p geometry.Point) bool {
	c.mu.Lock()
	connected, base := c.connected, c.baseURL
	c.mu.Unlock()
	if !connected {
		log.Printf("robot link: dropping navigate, not connected")
		return false
	}
	body, _ := json.Marshal(map[string]float64{"x": p.X, "y": p.Y})
	if err := c.post(base+"/navigate", body); err != nil {
		log.Printf("robot link: navigate: %v", err)
		return false
	}
	return true
}

// Stop halts the robot immediately.
func (c *Client) Stop() bool {
	c.mu.Lock()
	connected, base := c.connected, c.baseURL
	c.mu.Unlock()
	if !connected {
		return false
	}
	if err := c.post(base+"/stop", []byte("{}")); err != nil {
		log.Printf("robot link: stop: %v", err)
		return false
	}
	return true
}

// Status fetches the bridge's status snapshot, or nil on failure.
func (c *Client) Status() (*BridgeStatus, error) {
	c.mu.Lock()
	connected, base := c.connected, c.baseURL
	c.mu.Unlock()
	if !connected {
		return nil, fmt.Errorf("not connected")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", base+"/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status returned %d", resp.StatusCode)
	}
	var status BridgeStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &status, nil
}

func (c *Client) post(url string, body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned %d", url, resp.StatusCode)
	}
	return nil
}
