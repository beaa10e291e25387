// Package handler exposes owner profile endpoints. Registration is
// intentionally anonymous: certificate owners are not assumed to hold an
// account.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"certiva/internal/owner"
	"certiva/pkg/platform/httputil"
	"certiva/pkg/requestcontext"
)

// Service is the owner operations surface the handler consumes.
type Service interface {
	Upsert(ctx context.Context, params owner.UpsertParams) (owner.Profile, error)
	Get(ctx context.Context, idNo string) (owner.Profile, error)
	Delete(ctx context.Context, idNo string) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the anonymous self-registration endpoint.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/owners", h.HandleUpsert)
}

// RegisterProtected mounts endpoints that require authentication.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/owners/{idNo}", h.HandleGet)
	r.Delete("/owners/{idNo}", h.HandleDelete)
}

type upsertRequest struct {
	IDNo     string `json:"id_no"`
	FullName string `json:"full_name"`
	Mobile   string `json:"mobile"`
	Email    string `json:"email"`
}

func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[upsertRequest](w, r)
	if !ok {
		return
	}
	profile, err := h.service.Upsert(r.Context(), owner.UpsertParams{
		IDNo:     req.IDNo,
		FullName: req.FullName,
		Mobile:   req.Mobile,
		Email:    req.Email,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "owner profile saved",
		"request_id", requestcontext.RequestID(r.Context()),
		"id_no", profile.IDNo,
	)
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Get(r.Context(), chi.URLParam(r, "idNo"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "idNo")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusNoContent, nil)
}
