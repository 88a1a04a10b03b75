package www

import (
	"encoding/json"
	"net/http"
	"time"

	"conepilot/geometry"
	"conepilot/sim"

	"github.com/google/uuid"
)

// --- Field sessions ---

func (h *Handlers) apiListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.engine.DB().ListSessions()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, sessions)
}

func (h *Handlers) apiGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session ID")
		return
	}
	sess, err := h.engine.DB().GetSession(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, sess)
}

func (h *Handlers) apiCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string  `json:"name"`
		OriginX float64 `json:"origin_x"`
		OriginY float64 `json:"origin_y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	id, err := h.engine.DB().CreateSession(uuid.New().String(), req.Name, req.OriginX, req.OriginY)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sess, err := h.engine.DB().GetSession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, sess)
}

func (h *Handlers) apiUpdateSession(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session ID")
		return
	}
	var req struct {
		Name    string  `json:"name"`
		OriginX float64 `json:"origin_x"`
		OriginY float64 `json:"origin_y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.DB().UpdateSession(id, req.Name, req.OriginX, req.OriginY); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Moving the origin invalidates any planned ordering.
	if err := h.engine.DB().ClearVisitOrder(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session ID")
		return
	}
	if err := h.engine.DB().DeleteSession(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// --- Cones ---

func (h *Handlers) apiListCones(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session ID")
		return
	}
	cones, err := h.engine.DB().ListCones(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, cones)
}

func (h *Handlers) apiCreateCone(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session ID")
		return
	}
	var req struct {
		Label string  `json:"label"`
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	coneID, err := h.engine.DB().CreateCone(sessionID, req.Label, req.X, req.Y)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// A new target invalidates the previous plan.
	if err := h.engine.DB().ClearVisitOrder(sessionID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	cone, err := h.engine.DB().GetCone(coneID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, cone)
}

func (h *Handlers) apiUpdateCone(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cone ID")
		return
	}
	var req struct {
		Label string  `json:"label"`
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.engine.DB().UpdateCone(id, req.Label, req.X, req.Y); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiDeleteCone(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cone ID")
		return
	}
	cone, err := h.engine.DB().GetCone(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "cone not found")
		return
	}
	if err := h.engine.DB().DeleteCone(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.engine.DB().ClearVisitOrder(cone.SessionID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// --- Planning and simulation ---

func (h *Handlers) apiPlanSession(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session ID")
		return
	}
	ordered, err := h.engine.PlanSession(id)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, ordered)
}

func (h *Handlers) apiStartRun(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session ID")
		return
	}
	if err := h.engine.StartRun(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiStopRun(w http.ResponseWriter, r *http.Request) {
	h.engine.StopRun()
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiResetRun(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ResetRun(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiSimulationStatus(w http.ResponseWriter, r *http.Request) {
	s := h.engine.Sim()
	writeJSON(w, map[string]interface{}{
		"state":        s.State(),
		"pose":         s.Pose(),
		"telemetry":    s.Telemetry(),
		"stats":        s.Stats(),
		"path":         s.Path(),
		"sequence_log": s.SequenceLog(),
		"history":      s.History(),
		"procedure":    sim.PlacementSteps(),
		"session_id":   h.engine.ActiveSessionID(),
	})
}

// --- Placement archive ---

func (h *Handlers) apiListPlacements(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session ID")
		return
	}
	placements, err := h.engine.DB().ListPlacements(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, placements)
}

func (h *Handlers) apiClearPlacements(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session ID")
		return
	}
	if err := h.engine.DB().ClearPlacements(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// --- Robot bridge ---

func (h *Handlers) apiRobotStatus(w http.ResponseWriter, r *http.Request) {
	robot := h.engine.Robot()
	resp := map[string]interface{}{
		"connected": robot.IsConnected(),
		"base_url":  robot.BaseURL(),
	}
	if robot.IsConnected() {
		if status, err := robot.Status(); err == nil {
			resp["bridge"] = status
		}
	}
	writeJSON(w, resp)
}

func (h *Handlers) apiRobotConnect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	if req.URL == "" {
		req.URL = h.engine.AppConfig().Robot.URL
	}

	if err := h.engine.Robot().Connect(req.URL); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiRobotDisconnect(w http.ResponseWriter, r *http.Request) {
	h.engine.Robot().Disconnect()
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiRobotStop(w http.ResponseWriter, r *http.Request) {
	if !h.engine.Robot().Stop() {
		writeError(w, http.StatusBadGateway, "stop command failed")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiRobotVelocity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Linear  float64 `json:"linear"`
		Angular float64 `json:"angular"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.engine.Robot().SendVelocity(req.Linear, req.Angular)
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiRobotNavigate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.engine.Robot().NavigateTo(geometry.Point{X: req.X, Y: req.Y}) {
		writeError(w, http.StatusBadGateway, "navigate command failed")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiDispatchToRobot(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session ID")
		return
	}
	if err := h.engine.DispatchToRobot(id); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// --- Config ---

func (h *Handlers) apiUpdateRobotConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL         string `json:"url"`
		PollRateMS  int    `json:"poll_rate_ms"`
		AutoConnect bool   `json:"auto_connect"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg := h.engine.AppConfig()
	cfg.Lock()
	cfg.Robot.URL = req.URL
	if req.PollRateMS > 0 {
		cfg.Robot.PollRate = time.Duration(req.PollRateMS) * time.Millisecond
	}
	cfg.Robot.AutoConnect = req.AutoConnect
	cfg.Unlock()

	if path := h.engine.ConfigPath(); path != "" {
		if err := cfg.Save(path); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, cfg.Robot)
}
