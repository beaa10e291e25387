// Package handler exposes the dashboard endpoint.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"certiva/internal/dashboard"
	"certiva/pkg/platform/httputil"
)

// Service assembles the dashboard overview.
type Service interface {
	Overview(ctx context.Context) (*dashboard.Overview, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the dashboard endpoint. Mounted behind optional auth: the
// overview is public, role flags and quick lists appear for signed-in users.
func (h *Handler) Register(r chi.Router) {
	r.Get("/dashboard", h.HandleOverview)
}

func (h *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Overview(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
