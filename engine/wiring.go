package engine

import (
	"encoding/json"
	"log"

	"conepilot/sim"
)

// wireEventHandlers sets up the persistence chain:
// SimPlacement → placement archive row
// SimStateChanged(completed) → RunCompleted + session touch
func (e *Engine) wireEventHandlers() {
	e.Events.SubscribeTypes(func(evt Event) {
		placement := evt.Payload.(SimPlacementEvent)
		e.handlePlacementRecorded(placement)
	}, EventSimPlacement)

	e.Events.SubscribeTypes(func(evt Event) {
		change := evt.Payload.(SimStateChangedEvent)
		e.handleSimStateChanged(change)
	}, EventSimStateChanged)

	e.Events.SubscribeTypes(func(evt Event) {
		robot := evt.Payload.(RobotEvent)
		if robot.Error != "" {
			log.Printf("robot bridge disconnected: %s", robot.Error)
		}
	}, EventRobotDisconnected)
}

func (e *Engine) handlePlacementRecorded(placement SimPlacementEvent) {
	e.runMu.Lock()
	sessionID := e.activeSessionID
	e.runMu.Unlock()
	if sessionID == 0 {
		return // ad-hoc run, nothing to archive against
	}

	rec := placement.Record
	stepLog, err := json.Marshal(rec.Logs)
	if err != nil {
		log.Printf("marshal step log for cone %d: %v", rec.ConeIndex, err)
		stepLog = []byte("[]")
	}
	if _, err := e.db.InsertPlacement(sessionID, rec.ConeIndex, rec.TotalTime, string(stepLog)); err != nil {
		log.Printf("archive placement for session %d cone %d: %v", sessionID, rec.ConeIndex, err)
	}
	e.debugFn("archived placement: session=%d cone=%d time=%.2fs", sessionID, rec.ConeIndex, rec.TotalTime)
}

func (e *Engine) handleSimStateChanged(change SimStateChangedEvent) {
	if change.NewState != sim.StateCompleted {
		return
	}
	e.runMu.Lock()
	sessionID := e.activeSessionID
	e.runMu.Unlock()
	if sessionID != 0 {
		if err := e.db.TouchSession(sessionID); err != nil {
			log.Printf("touch session %d on completion: %v", sessionID, err)
		}
	}
	e.Events.Emit(Event{Type: EventRunCompleted, Payload: RunEvent{SessionID: sessionID}})
	e.logFn("run completed: session=%d", sessionID)
}
