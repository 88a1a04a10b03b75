package messaging

import (
	"encoding/json"
	"log"
)

// Subscriber is the part of the messaging client the listener needs.
type Subscriber interface {
	Subscribe(topic string, handler func(payload []byte)) error
}

// RunController is the run lifecycle surface remote commands act on.
type RunController interface {
	StartRun(sessionID int64) error
	StopRun()
	ResetRun() error
}

// CommandListener subscribes to the fleet command topic and routes
// run-control requests addressed to this node into the engine.
type CommandListener struct {
	client Subscriber
	nodeID string
	topic  string
	ctrl   RunController
}

// NewCommandListener creates a listener for the given node identity.
func NewCommandListener(client Subscriber, nodeID, topic string, ctrl RunController) *CommandListener {
	return &CommandListener{
		client: client,
		nodeID: nodeID,
		topic:  topic,
		ctrl:   ctrl,
	}
}

// Start subscribes to the command topic and begins processing requests.
func (l *CommandListener) Start() error {
	return l.client.Subscribe(l.topic, l.handleMessage)
}

func (l *CommandListener) handleMessage(payload []byte) {
	var cmd RemoteCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		log.Printf("unmarshal remote command: %v", err)
		return
	}

	// The command topic is shared across the fleet; ignore requests
	// addressed to other nodes.
	if cmd.NodeID != l.nodeID {
		return
	}

	switch cmd.Command {
	case "start":
		if err := l.ctrl.StartRun(cmd.SessionID); err != nil {
			log.Printf("remote start session %d: %v", cmd.SessionID, err)
		}
	case "stop":
		l.ctrl.StopRun()
	case "reset":
		if err := l.ctrl.ResetRun(); err != nil {
			log.Printf("remote reset: %v", err)
		}
	default:
		log.Printf("unknown remote command %q", cmd.Command)
	}
}
