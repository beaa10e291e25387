// Package handler exposes the verification request lifecycle over HTTP.
// Owner confirmation is anonymous; every other endpoint requires
// authentication.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"certiva/internal/verification"
	id "certiva/pkg/domain"
	"certiva/pkg/platform/httputil"
	"certiva/pkg/requestcontext"
)

// Service is the verification operations surface the handler consumes.
type Service interface {
	Create(ctx context.Context, params verification.CreateParams) (*verification.Request, error)
	Confirm(ctx context.Context, idNo, otp string) (*verification.Request, error)
	Get(ctx context.Context, requestID id.RequestID) (*verification.Request, error)
	List(ctx context.Context) ([]*verification.Request, error)
	View(ctx context.Context, requestID id.RequestID) (*verification.ViewResult, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the anonymous owner confirmation endpoint.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/verification-requests/confirm", h.HandleConfirm)
}

// RegisterProtected mounts the HR-facing endpoints.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Route("/verification-requests", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{requestID}", h.HandleGet)
		r.Post("/{requestID}/view", h.HandleView)
	})
}

func requestID(w http.ResponseWriter, r *http.Request) (id.RequestID, bool) {
	reqID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.RequestID{}, false
	}
	return reqID, true
}

type createRequest struct {
	IDNo     string         `json:"id_no"`
	Business *id.BusinessID `json:"business_id"`
	Note     string         `json:"note"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	req, ok := httputil.Decode[createRequest](w, r)
	if !ok {
		return
	}
	created, err := h.service.Create(ctx, verification.CreateParams{
		IDNo:     req.IDNo,
		Business: req.Business,
		Note:     req.Note,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "verification request created",
		"request_id", requestcontext.RequestID(ctx),
		"verification_request", created.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, created)
}

type confirmRequest struct {
	IDNo string `json:"id_no"`
	OTP  string `json:"otp"`
}

type confirmResponse struct {
	RequestID id.RequestID        `json:"request_id"`
	Status    verification.Status `json:"status"`
}

func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[confirmRequest](w, r)
	if !ok {
		return
	}
	confirmed, err := h.service.Confirm(r.Context(), req.IDNo, req.OTP)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, confirmResponse{
		RequestID: confirmed.ID,
		Status:    confirmed.Status,
	})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	reqID, ok := requestID(w, r)
	if !ok {
		return
	}
	req, err := h.service.Get(r.Context(), reqID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reqs)
}

func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	reqID, ok := requestID(w, r)
	if !ok {
		return
	}
	result, err := h.service.View(r.Context(), reqID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
