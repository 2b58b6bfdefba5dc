// Package api exposes the agent gateway over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	apperrors "shopping-agent-gateway/internal/common/errors"
	"shopping-agent-gateway/internal/common/logger"
	tooldispatch "shopping-agent-gateway/internal/gateway/tool-dispatch"
	"shopping-agent-gateway/internal/models"
	"shopping-agent-gateway/pkg/registry"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Component = "api"

// maxBodyBytes bounds inbound JSON bodies.
const maxBodyBytes = 1 << 20

type Agent interface {
	Handle(ctx context.Context, req *models.AgentRequest) (*models.Envelope, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, call models.ToolCall, user models.UserContext) (*tooldispatch.Receipt, error)
}

// Pinger is a dependency checked by /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Agent      Agent
	Dispatcher Dispatcher
	Spec       *registry.AgentSpec
	Readiness  map[string]Pinger
	// ReadyTimeout bounds all readiness pings together.
	ReadyTimeout time.Duration
	// Metrics serves /metrics; nil uses the default Prometheus registry.
	Metrics http.Handler
	Logger  logger.Logger
}

type Handler struct {
	agent        Agent
	dispatcher   Dispatcher
	spec         *registry.AgentSpec
	readiness    map[string]Pinger
	readyTimeout time.Duration
	metrics      http.Handler
	errors       *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(opts Options) *Handler {
	log := logger.ForComponent(opts.Logger, Component)
	readyTimeout := opts.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = 3 * time.Second
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	return &Handler{
		agent:        opts.Agent,
		dispatcher:   opts.Dispatcher,
		spec:         opts.Spec,
		readiness:    opts.Readiness,
		readyTimeout: readyTimeout,
		metrics:      metrics,
		errors:       apperrors.NewErrorHandler(log),
		logger:       log,
	}
}

// Router builds the chi router with every route and middleware.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(AccessLog(h.logger))
	r.Use(chiMiddleware.Recoverer)

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Method(http.MethodGet, "/metrics", h.metrics)

	r.Route("/v1/agent", func(r chi.Router) {
		r.Use(WithAgentSpec(h.spec))
		r.Post("/chat", h.Chat)
		if h.dispatcher != nil {
			r.Post("/tools/confirm", h.Confirm)
		}
	})
	return r
}

// Chat runs one agent request and returns its envelope.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	requestID := RequestIDFromContext(r.Context())

	var req models.AgentRequest
	if err := decode(w, r, &req); err != nil {
		h.errors.HandleHTTPError(w, requestID, err)
		return
	}
	if req.RequestID == "" {
		req.RequestID = requestID
	}

	env, err := h.agent.Handle(r.Context(), &req)
	if err != nil {
		h.errors.HandleHTTPError(w, req.RequestID, err)
		return
	}
	JSON(w, http.StatusOK, env)
}

type confirmResponse struct {
	RequestID string                `json:"requestId"`
	Receipt   *tooldispatch.Receipt `json:"receipt"`
}

// Confirm executes a tool call the user accepted.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	requestID := RequestIDFromContext(r.Context())

	var req tooldispatch.ConfirmRequest
	if err := decode(w, r, &req); err != nil {
		h.errors.HandleHTTPError(w, requestID, err)
		return
	}
	if req.Tool.RequestID == "" {
		req.Tool.RequestID = requestID
	}

	receipt, err := h.dispatcher.Dispatch(r.Context(), req.Tool, req.UserContext)
	if err != nil {
		h.errors.HandleHTTPError(w, req.Tool.RequestID, err)
		return
	}
	JSON(w, http.StatusOK, confirmResponse{RequestID: req.Tool.RequestID, Receipt: receipt})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]interface{}{"status": "healthy"}
	if h.spec != nil {
		body["specVersion"] = h.spec.Version
	}
	JSON(w, http.StatusOK, body)
}

// Ready pings every dependency and reports 503 when any fails.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.readyTimeout)
	defer cancel()

	names := make([]string, 0, len(h.readiness))
	for name := range h.readiness {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	status, code := "ready", http.StatusOK
	for _, name := range names {
		if err := h.readiness[name].Ping(ctx); err != nil {
			h.logger.WithError(err).Warn("readiness check failed", map[string]interface{}{"dependency": name})
			checks[name] = "unavailable"
			status, code = "not_ready", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	JSON(w, code, map[string]interface{}{"status": status, "checks": checks})
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return apperrors.NewValidationError("body", fmt.Sprintf("exceeds %d bytes", maxBodyBytes))
		case errors.Is(err, io.EOF):
			return apperrors.NewValidationError("body", "request body is required")
		default:
			return apperrors.NewValidationError("body", err.Error())
		}
	}
	return nil
}
