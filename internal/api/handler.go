// Package api serves the assistant over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nidhogg/smart-money/internal/gateway"
	"github.com/nidhogg/smart-money/internal/router"
	"github.com/nidhogg/smart-money/internal/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	msgNoQuestion = "No valid question received"
	msgFailure    = "Something went wrong."

	// maxBodyBytes bounds an /ask request body.
	maxBodyBytes = 64 << 10

	healthTimeout = 3 * time.Second
)

// Asker answers a question within a session.
type Asker interface {
	Ask(ctx context.Context, sessionID, question string) (router.Reply, error)
}

// GatewayStatus reports chat gateway adapters.
type GatewayStatus interface {
	StatusAll() []gateway.AdapterStatus
}

// IntentCounter tallies archived answers per intent.
type IntentCounter interface {
	CountByIntent(ctx context.Context) (map[string]int, error)
}

// HealthFunc reports whether a backing service is reachable.
type HealthFunc func(ctx context.Context) error

type healthCheck struct {
	name  string
	check HealthFunc
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	asker       Asker
	sessions    session.Store
	cookies     *Cookies
	gw          GatewayStatus
	stats       IntentCounter
	checks      []healthCheck
	corsOrigins []string
	metrics     *Metrics
	logger      *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(asker Asker, sessions session.Store, cookies *Cookies, logger *zap.Logger) *Handler {
	return &Handler{
		asker:       asker,
		sessions:    sessions,
		cookies:     cookies,
		corsOrigins: []string{"*"},
		metrics:     NewMetrics(),
		logger:      logger,
	}
}

// SetCORSOrigins restricts the allowed browser origins.
func (h *Handler) SetCORSOrigins(origins []string) {
	if len(origins) > 0 {
		h.corsOrigins = origins
	}
}

// SetGateway exposes adapter status on /api/gateways.
func (h *Handler) SetGateway(gw GatewayStatus) {
	h.gw = gw
}

// SetStats exposes archived intent counts on /api/stats.
func (h *Handler) SetStats(c IntentCounter) {
	h.stats = c
}

// AddHealthCheck reports check under name on /api/health.
func (h *Handler) AddHealthCheck(name string, check HealthFunc) {
	h.checks = append(h.checks, healthCheck{name: name, check: check})
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.instrument)
	r.Use(h.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Post("/ask", h.ask)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Get("/session", h.getSession)
		r.Get("/gateways", h.gatewayStatus)
		r.Get("/stats", h.intentStats)
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthCheck answers 503 when any registered dependency is unreachable.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}
	for _, c := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		err := c.check(ctx)
		cancel()
		if err != nil {
			h.logger.Warn("health check failed", zap.String("check", c.name), zap.Error(err))
			resp.Status = "degraded"
			resp.Checks[c.name] = err.Error()
			continue
		}
		resp.Checks[c.name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

func (h *Handler) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgNoQuestion)
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, msgNoQuestion)
		return
	}

	sid, _ := h.cookies.Session(w, r)
	reply, err := h.asker.Ask(r.Context(), sid, question)
	if err != nil {
		h.logger.Error("ask failed",
			zap.String("session", sid),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, msgFailure)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{Answer: reply.Answer})
}

// getSession returns the caller's stored salary profile, or null.
func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	sid, issued := h.cookies.Session(w, r)
	if issued {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	p, err := h.sessions.GetSalary(r.Context(), sid)
	if err != nil {
		h.logger.Error("get salary failed", zap.String("session", sid), zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgFailure)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) gatewayStatus(w http.ResponseWriter, r *http.Request) {
	if h.gw == nil {
		writeJSON(w, http.StatusOK, []gateway.AdapterStatus{})
		return
	}
	writeJSON(w, http.StatusOK, h.gw.StatusAll())
}

func (h *Handler) intentStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		writeError(w, http.StatusNotFound, "transcript archive not configured")
		return
	}
	counts, err := h.stats.CountByIntent(r.Context())
	if err != nil {
		h.logger.Error("count intents failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgFailure)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
