// Package handler is the thin HTTP layer over the query service and workflow
// coordinator. It delegates to domain services without embedding business
// logic so transport concerns remain isolated.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kycflow/internal/audit"
	"kycflow/internal/kyc"
	"kycflow/internal/kyc/query"
	"kycflow/internal/kyc/workflow"
	dErrors "kycflow/pkg/domain-errors"
	"kycflow/pkg/platform/httputil"
	"kycflow/pkg/requestcontext"
)

// QueryService answers viewer reads.
type QueryService interface {
	CustomerTimeline(ctx context.Context, customerID string) (*query.Timeline, error)
	ListRecords(ctx context.Context, status kyc.Status) ([]kyc.Event, error)
}

// Starter runs a verification workflow to a terminal state.
type Starter interface {
	Run(ctx context.Context, customerID, documentURL string) (workflow.State, error)
}

// AuditReader lists recorded workflow actions.
type AuditReader interface {
	List(ctx context.Context, limit int) ([]audit.Entry, error)
	ListByCustomer(ctx context.Context, customerID string) ([]audit.Entry, error)
}

// HealthChecker reports dependency health; nil means always healthy.
type HealthChecker func(ctx context.Context) error

// Handler wires KYC endpoints to the domain services.
type Handler struct {
	queries QueryService
	starter Starter
	trail   AuditReader
	health  HealthChecker
	logger  *slog.Logger

	// startTimeout bounds a detached workflow run kicked off by the intake
	// endpoint.
	startTimeout time.Duration
}

// New constructs a handler.
func New(queries QueryService, starter Starter, trail AuditReader, health HealthChecker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		queries:      queries,
		starter:      starter,
		trail:        trail,
		health:       health,
		logger:       logger,
		startTimeout: 5 * time.Minute,
	}
}

// Register mounts all endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/kyc", h.handleList)
	r.Get("/kyc/audit", h.handleAudit)
	r.Get("/kyc/{customerID}", h.handleTimeline)
	r.Get("/kyc/{customerID}/status", h.handleStatus)
	r.Post("/kyc/{customerID}/start", h.handleStart)
	r.Get("/healthz", h.handleHealth)
}

// handleList serves GET /kyc: the latest record per customer, optionally
// filtered with ?status=.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := kyc.Status(r.URL.Query().Get("status"))
	records, err := h.queries.ListRecords(ctx, status)
	if err != nil {
		h.logger.Error("list records failed",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}

// handleTimeline serves GET /kyc/{customerID}: the full event history,
// ascending by lastUpdated.
func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID := chi.URLParam(r, "customerID")

	timeline, err := h.queries.CustomerTimeline(ctx, customerID)
	if err != nil {
		h.logger.Error("timeline read failed",
			"request_id", requestcontext.RequestID(ctx), "customer_id", customerID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, timeline.Events)
}

// handleStatus serves GET /kyc/{customerID}/status: the derived progress.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID := chi.URLParam(r, "customerID")

	timeline, err := h.queries.CustomerTimeline(ctx, customerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, timeline.Progress)
}

type startRequest struct {
	DocumentURL string `json:"documentUrl"`
}

type startResponse struct {
	CustomerID string `json:"customerId"`
	State      string `json:"state"`
}

// handleStart serves POST /kyc/{customerID}/start: the upload-intake trigger.
// The workflow runs detached; viewers observe progress by polling the read
// endpoints.
func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	if customerID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "customerId is required"))
		return
	}

	var req startRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}

	requestID := requestcontext.RequestID(r.Context())
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.startTimeout)
		defer cancel()
		state, err := h.starter.Run(ctx, customerID, req.DocumentURL)
		if err != nil {
			h.logger.Error("workflow run failed",
				"request_id", requestID, "customer_id", customerID, "state", state, "error", err)
		}
	}()

	httputil.WriteJSON(w, http.StatusAccepted, startResponse{
		CustomerID: customerID,
		State:      "started",
	})
}

// handleAudit serves GET /kyc/audit, optionally scoped with ?customerId=.
func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		entries []audit.Entry
		err     error
	)
	if customerID := r.URL.Query().Get("customerId"); customerID != "" {
		entries, err = h.trail.ListByCustomer(ctx, customerID)
	} else {
		entries, err = h.trail.List(ctx, 100)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
