package www

import (
	"net/http"

	"conepilot/engine"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	engine   *engine.Engine
	sessions *sessionStore
	eventHub *EventHub
}

// NewRouter creates the chi router and returns it along with a stop function.
func NewRouter(eng *engine.Engine) (http.Handler, func()) {
	h := &Handlers{
		engine:   eng,
		sessions: newSessionStore(eng.AppConfig().Web.SessionSecret),
		eventHub: NewEventHub(),
	}

	h.eventHub.Start()
	h.eventHub.SetupEngineListeners(eng)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// SSE (no auth — dashboards)
	r.Get("/events", h.eventHub.HandleSSE)

	// Login/logout
	r.Post("/api/login", h.apiLogin)
	r.Post("/api/logout", h.apiLogout)

	r.Route("/api", func(r chi.Router) {
		// Public API (read-only views plus run controls)
		r.Get("/sessions", h.apiListSessions)
		r.Get("/sessions/{id}", h.apiGetSession)
		r.Get("/sessions/{id}/cones", h.apiListCones)
		r.Get("/sessions/{id}/placements", h.apiListPlacements)
		r.Get("/simulation", h.apiSimulationStatus)
		r.Get("/robot/status", h.apiRobotStatus)

		r.Post("/sessions/{id}/plan", h.apiPlanSession)
		r.Post("/sessions/{id}/run", h.apiStartRun)
		r.Post("/simulation/stop", h.apiStopRun)
		r.Post("/simulation/reset", h.apiResetRun)

		// Admin API (field setup mutations)
		r.Group(func(r chi.Router) {
			r.Use(h.adminMiddleware)

			// Field sessions
			r.Post("/sessions", h.apiCreateSession)
			r.Put("/sessions/{id}", h.apiUpdateSession)
			r.Delete("/sessions/{id}", h.apiDeleteSession)
			r.Delete("/sessions/{id}/placements", h.apiClearPlacements)

			// Cones
			r.Post("/sessions/{id}/cones", h.apiCreateCone)
			r.Put("/cones/{id}", h.apiUpdateCone)
			r.Delete("/cones/{id}", h.apiDeleteCone)

			// Robot bridge
			r.Post("/robot/connect", h.apiRobotConnect)
			r.Post("/robot/disconnect", h.apiRobotDisconnect)
			r.Post("/robot/stop", h.apiRobotStop)
			r.Post("/robot/velocity", h.apiRobotVelocity)
			r.Post("/robot/navigate", h.apiRobotNavigate)
			r.Post("/sessions/{id}/dispatch", h.apiDispatchToRobot)

			// Config
			r.Put("/config/robot", h.apiUpdateRobotConfig)
			r.Post("/config/password", h.apiChangePassword)

			// Operator accounts
			r.Get("/admin/users", h.apiListAdminUsers)
			r.Post("/admin/users", h.apiCreateAdminUser)
			r.Delete("/admin/users/{username}", h.apiDeleteAdminUser)
		})
	})

	return r, func() {
		h.eventHub.Stop()
	}
}

func (h *Handlers) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, ok := h.sessions.getUser(r)
		if !ok || username == "" {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
