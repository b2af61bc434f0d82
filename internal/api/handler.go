// Package api provides the HTTP surface for submitting access requests and
// polling their status.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"csecbridge/internal/domain"
	"csecbridge/internal/service"
)

// Handler exposes the producer and the status read path over HTTP.
type Handler struct {
	producer   *service.Producer
	reader     *service.StatusReader
	requests   domain.RequestRepository
	audit      domain.AuditRepository
	references domain.ReferenceRepository
	logger     *slog.Logger

	// readyCheck pings the backing stores for the readiness probe.
	readyCheck func(ctx context.Context) error
}

func NewHandler(
	producer *service.Producer,
	reader *service.StatusReader,
	requests domain.RequestRepository,
	audit domain.AuditRepository,
	references domain.ReferenceRepository,
	readyCheck func(ctx context.Context) error,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		producer:   producer,
		reader:     reader,
		requests:   requests,
		audit:      audit,
		references: references,
		readyCheck: readyCheck,
		logger:     logger.With("component", "api"),
	}
}

// Router mounts all routes with logging, panic recovery, and CORS.
func Router(h *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/requests", h.SubmitRequest)
		r.Get("/requests/{correlationID}", h.GetRequestStatus)
		r.Get("/requests/{correlationID}/history", h.GetRequestHistory)
	})

	return r
}

type submitRequestBody struct {
	ClientRequestID string `json:"client_request_id"`
	AccountID       string `json:"account_id"`
	TargetPlatform  string `json:"target_platform"`
	PrincipalType   string `json:"principal_type"`
	PrincipalName   string `json:"principal_name"`
	Action          string `json:"action"`
	PermissionRef   string `json:"permission_ref"`
	PermissionType  string `json:"permission_type"`
}

type submitRequestResponse struct {
	CorrelationID   string    `json:"correlation_id"`
	ClientRequestID string    `json:"client_request_id"`
	Status          string    `json:"status"`
	ReceivedAt      time.Time `json:"received_at"`
}

// SubmitRequest accepts an access request and answers 202: execution is
// asynchronous and the correlation id is the handle for polling.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var body submitRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}

	req := &domain.AccessRequest{
		ClientRequestID: body.ClientRequestID,
		AccountID:       body.AccountID,
		TargetPlatform:  body.TargetPlatform,
		PrincipalType:   body.PrincipalType,
		PrincipalName:   body.PrincipalName,
		Action:          body.Action,
		PermissionRef:   body.PermissionRef,
		PermissionType:  body.PermissionType,
	}

	accepted, err := h.producer.Submit(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, submitRequestResponse{
		CorrelationID:   accepted.CorrelationID,
		ClientRequestID: accepted.ClientRequestID,
		Status:          string(accepted.Status),
		ReceivedAt:      accepted.CreatedAt,
	})
}

// GetRequestStatus serves the cache-aside status read-model.
func (h *Handler) GetRequestStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := h.reader.GetStatus(r.Context(), chi.URLParam(r, "correlationID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type auditEntryResponse struct {
	PriorStatus *domain.Status `json:"prior_status"`
	NewStatus   domain.Status  `json:"new_status"`
	Detail      string         `json:"detail,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

type referenceResponse struct {
	Platform    string    `json:"platform"`
	ReferenceID string    `json:"reference_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type requestHistoryResponse struct {
	CorrelationID   string                `json:"correlation_id"`
	ClientRequestID string                `json:"client_request_id"`
	AccountID       string                `json:"account_id"`
	TargetPlatform  string                `json:"target_platform"`
	PrincipalType   string                `json:"principal_type"`
	PrincipalName   string                `json:"principal_name"`
	Action          string                `json:"action"`
	PermissionRef   string                `json:"permission_ref"`
	PermissionType  string                `json:"permission_type"`
	Status          domain.Status         `json:"status"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	History         []auditEntryResponse  `json:"history"`
	References      []referenceResponse   `json:"references"`
}

// GetRequestHistory serves the full request row with its transition history
// and provider references. Always read from the state store: this is the
// audit view, not the polling path.
func (h *Handler) GetRequestHistory(w http.ResponseWriter, r *http.Request) {
	correlationID := chi.URLParam(r, "correlationID")

	req, err := h.requests.Get(r.Context(), correlationID)
	if err != nil {
		writeError(w, err)
		return
	}
	entries, err := h.audit.ListByRequest(r.Context(), correlationID)
	if err != nil {
		writeError(w, err)
		return
	}
	refs, err := h.references.ListByRequest(r.Context(), correlationID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := requestHistoryResponse{
		CorrelationID:   req.CorrelationID,
		ClientRequestID: req.ClientRequestID,
		AccountID:       req.AccountID,
		TargetPlatform:  req.TargetPlatform,
		PrincipalType:   req.PrincipalType,
		PrincipalName:   req.PrincipalName,
		Action:          req.Action,
		PermissionRef:   req.PermissionRef,
		PermissionType:  req.PermissionType,
		Status:          req.Status,
		CreatedAt:       req.CreatedAt,
		UpdatedAt:       req.UpdatedAt,
		History:         make([]auditEntryResponse, 0, len(entries)),
		References:      make([]referenceResponse, 0, len(refs)),
	}
	for _, e := range entries {
		resp.History = append(resp.History, auditEntryResponse{
			PriorStatus: e.PriorStatus,
			NewStatus:   e.NewStatus,
			Detail:      e.Detail,
			CreatedAt:   e.CreatedAt,
		})
	}
	for _, ref := range refs {
		resp.References = append(resp.References, referenceResponse{
			Platform:    ref.Platform,
			ReferenceID: ref.ReferenceID,
			CreatedAt:   ref.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// Health reports process liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports whether the backing stores are reachable.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.readyCheck != nil {
		if err := h.readyCheck(r.Context()); err != nil {
			h.logger.WarnContext(r.Context(), "readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
