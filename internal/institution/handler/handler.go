// Package handler exposes institution and certificate endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"certiva/internal/institution"
	id "certiva/pkg/domain"
	"certiva/pkg/platform/httputil"
)

// Service is the institution operations surface the handler consumes.
type Service interface {
	Create(ctx context.Context, name, code, contactEmail string) (*institution.Institution, error)
	Get(ctx context.Context, institutionID id.InstitutionID) (*institution.Institution, error)
	List(ctx context.Context) ([]*institution.Institution, error)
	ListMine(ctx context.Context) ([]*institution.Institution, error)
	SetVerified(ctx context.Context, institutionID id.InstitutionID, verified bool) (*institution.Institution, error)
	SetStaff(ctx context.Context, institutionID id.InstitutionID, staff []id.UserID) (*institution.Institution, error)
	Delete(ctx context.Context, institutionID id.InstitutionID) error

	CreateCertificate(ctx context.Context, institutionID id.InstitutionID, params institution.CertificateParams) (*institution.Certificate, error)
	UpdateCertificate(ctx context.Context, institutionID id.InstitutionID, certID id.CertificateID, params institution.CertificateParams) (*institution.Certificate, error)
	DeleteCertificate(ctx context.Context, institutionID id.InstitutionID, certID id.CertificateID) error
	ListCertificates(ctx context.Context, institutionID id.InstitutionID) ([]*institution.Certificate, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts institution endpoints. All require authentication; the
// service enforces role and staff checks.
func (h *Handler) Register(r chi.Router) {
	r.Route("/institutions", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/mine", h.HandleListMine)
		r.Route("/{institutionID}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Delete("/", h.HandleDelete)
			r.Post("/verify", h.HandleVerify)
			r.Post("/unverify", h.HandleUnverify)
			r.Put("/staff", h.HandleSetStaff)
			r.Route("/certificates", func(r chi.Router) {
				r.Post("/", h.HandleCreateCertificate)
				r.Get("/", h.HandleListCertificates)
				r.Put("/{certificateID}", h.HandleUpdateCertificate)
				r.Delete("/{certificateID}", h.HandleDeleteCertificate)
			})
		})
	})
}

func institutionID(w http.ResponseWriter, r *http.Request) (id.InstitutionID, bool) {
	instID, err := id.ParseInstitutionID(chi.URLParam(r, "institutionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.InstitutionID{}, false
	}
	return instID, true
}

type createRequest struct {
	Name         string `json:"name"`
	Code         string `json:"code"`
	ContactEmail string `json:"contact_email"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[createRequest](w, r)
	if !ok {
		return
	}
	inst, err := h.service.Create(r.Context(), req.Name, req.Code, req.ContactEmail)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, inst)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	instID, ok := institutionID(w, r)
	if !ok {
		return
	}
	inst, err := h.service.Get(r.Context(), instID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inst)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	insts, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, insts)
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	insts, err := h.service.ListMine(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, insts)
}

func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	h.setVerified(w, r, true)
}

func (h *Handler) HandleUnverify(w http.ResponseWriter, r *http.Request) {
	h.setVerified(w, r, false)
}

func (h *Handler) setVerified(w http.ResponseWriter, r *http.Request, verified bool) {
	instID, ok := institutionID(w, r)
	if !ok {
		return
	}
	inst, err := h.service.SetVerified(r.Context(), instID, verified)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inst)
}

type staffRequest struct {
	Staff []id.UserID `json:"staff"`
}

func (h *Handler) HandleSetStaff(w http.ResponseWriter, r *http.Request) {
	instID, ok := institutionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[staffRequest](w, r)
	if !ok {
		return
	}
	inst, err := h.service.SetStaff(r.Context(), instID, req.Staff)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inst)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	instID, ok := institutionID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), instID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusNoContent, nil)
}

type certificateRequest struct {
	OwnerIDNo            string     `json:"owner_id_no"`
	OwnerName            string     `json:"owner_name"`
	DegreeName           string     `json:"degree_name"`
	Program              string     `json:"program"`
	ConferralDate        *time.Time `json:"conferral_date"`
	CertificateReference string     `json:"certificate_reference"`
}

func (r certificateRequest) params() institution.CertificateParams {
	return institution.CertificateParams{
		OwnerIDNo:            r.OwnerIDNo,
		OwnerName:            r.OwnerName,
		DegreeName:           r.DegreeName,
		Program:              r.Program,
		ConferralDate:        r.ConferralDate,
		CertificateReference: r.CertificateReference,
	}
}

func (h *Handler) HandleCreateCertificate(w http.ResponseWriter, r *http.Request) {
	instID, ok := institutionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[certificateRequest](w, r)
	if !ok {
		return
	}
	cert, err := h.service.CreateCertificate(r.Context(), instID, req.params())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, cert)
}

func (h *Handler) HandleUpdateCertificate(w http.ResponseWriter, r *http.Request) {
	instID, ok := institutionID(w, r)
	if !ok {
		return
	}
	certID, err := id.ParseCertificateID(chi.URLParam(r, "certificateID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[certificateRequest](w, r)
	if !ok {
		return
	}
	cert, err := h.service.UpdateCertificate(r.Context(), instID, certID, req.params())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cert)
}

func (h *Handler) HandleDeleteCertificate(w http.ResponseWriter, r *http.Request) {
	instID, ok := institutionID(w, r)
	if !ok {
		return
	}
	certID, err := id.ParseCertificateID(chi.URLParam(r, "certificateID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteCertificate(r.Context(), instID, certID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) HandleListCertificates(w http.ResponseWriter, r *http.Request) {
	instID, ok := institutionID(w, r)
	if !ok {
		return
	}
	certs, err := h.service.ListCertificates(r.Context(), instID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, certs)
}
