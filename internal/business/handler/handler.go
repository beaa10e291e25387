// Package handler exposes business registry endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"certiva/internal/business"
	id "certiva/pkg/domain"
	"certiva/pkg/platform/httputil"
)

// Service is the business operations surface the handler consumes.
type Service interface {
	Register(ctx context.Context, params business.RegisterParams) (*business.Business, error)
	Get(ctx context.Context, businessID id.BusinessID) (*business.Business, error)
	List(ctx context.Context) ([]*business.Business, error)
	ListMine(ctx context.Context) ([]*business.Business, error)
	SetVerified(ctx context.Context, businessID id.BusinessID, verified bool) (*business.Business, error)
	SetStaff(ctx context.Context, businessID id.BusinessID, staff []id.UserID) (*business.Business, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts business endpoints. All require authentication; the
// service enforces role and staff checks.
func (h *Handler) Register(r chi.Router) {
	r.Route("/businesses", func(r chi.Router) {
		r.Post("/", h.HandleRegister)
		r.Get("/", h.HandleList)
		r.Get("/mine", h.HandleListMine)
		r.Route("/{businessID}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Post("/verify", h.HandleVerify)
			r.Post("/unverify", h.HandleUnverify)
			r.Put("/staff", h.HandleSetStaff)
		})
	})
}

func businessID(w http.ResponseWriter, r *http.Request) (id.BusinessID, bool) {
	bizID, err := id.ParseBusinessID(chi.URLParam(r, "businessID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.BusinessID{}, false
	}
	return bizID, true
}

type registerRequest struct {
	Name               string `json:"name"`
	RegistrationNumber string `json:"registration_number"`
	ContactEmail       string `json:"contact_email"`
	Address            string `json:"address"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[registerRequest](w, r)
	if !ok {
		return
	}
	biz, err := h.service.Register(r.Context(), business.RegisterParams{
		Name:               req.Name,
		RegistrationNumber: req.RegistrationNumber,
		ContactEmail:       req.ContactEmail,
		Address:            req.Address,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, biz)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	bizID, ok := businessID(w, r)
	if !ok {
		return
	}
	biz, err := h.service.Get(r.Context(), bizID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, biz)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListMine(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	h.setVerified(w, r, true)
}

func (h *Handler) HandleUnverify(w http.ResponseWriter, r *http.Request) {
	h.setVerified(w, r, false)
}

func (h *Handler) setVerified(w http.ResponseWriter, r *http.Request, verified bool) {
	bizID, ok := businessID(w, r)
	if !ok {
		return
	}
	biz, err := h.service.SetVerified(r.Context(), bizID, verified)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, biz)
}

type staffRequest struct {
	Staff []id.UserID `json:"staff"`
}

func (h *Handler) HandleSetStaff(w http.ResponseWriter, r *http.Request) {
	bizID, ok := businessID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[staffRequest](w, r)
	if !ok {
		return
	}
	biz, err := h.service.SetStaff(r.Context(), bizID, req.Staff)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, biz)
}
