package httpapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	apiPrefix       = "/console/api/v1"
	RequestIDHeader = "X-Request-ID"
)

// Router uses the standard library http.ServeMux.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler registers an http.Handler such as the metrics exporter.
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

// ServeHTTP echoes the caller's request id, or assigns one.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	id := req.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)
	r.mux.ServeHTTP(w, req)
}

// RegisterConsoleRoutes mounts the console API.
func (r *Router) RegisterConsoleRoutes(h *ConsoleHandler) {
	r.Handle(apiPrefix+"/session", instrument("session", h.Session))
	r.Handle(apiPrefix+"/screens", instrument("screens", h.withSession(h.ListScreens)))
	r.Handle(apiPrefix+"/screens/", instrument("screen", h.withSession(h.Screen)))
	r.Handle(apiPrefix+"/locations", instrument("locations", h.withSession(h.Locations)))
	r.Handle(apiPrefix+"/locations/", instrument("locations", h.withSession(h.Locations)))
	r.Handle(apiPrefix+"/questions", instrument("questions", h.withSession(h.Questions)))
	r.Handle(apiPrefix+"/questions/assign", instrument("questions.assign", h.withSession(h.AssignQuestions)))
	r.Handle(apiPrefix+"/action-logs", instrument("action_logs", h.withSession(h.ActionLogs)))
}

// RegisterOpsRoutes mounts the health probe and the Prometheus exporter.
func (r *Router) RegisterOpsRoutes() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
	})
	r.HandleHandler("/metrics", promhttp.Handler())
}
