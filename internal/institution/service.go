package institution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"certiva/internal/authz"
	id "certiva/pkg/domain"
	dErrors "certiva/pkg/domain-errors"
	"certiva/pkg/platform/audit"
	"certiva/pkg/platform/sentinel"
	"certiva/pkg/requestcontext"
)

// OwnerLookup resolves owner profiles for certificate link resolution.
type OwnerLookup interface {
	Exists(ctx context.Context, idNo string) (bool, error)
}

// Service orchestrates institution lifecycle and certificate management.
//
// Institution creation and verification are government-role operations;
// certificate management checks the staff relation on the specific
// institution, never the coarse role flag.
type Service struct {
	insts    Store
	certs    CertificateStore
	owners   OwnerLookup
	recorder *audit.Recorder
}

func NewService(insts Store, certs CertificateStore, owners OwnerLookup, recorder *audit.Recorder) *Service {
	return &Service{insts: insts, certs: certs, owners: owners, recorder: recorder}
}

func requireGovernment(ctx context.Context) (id.UserID, error) {
	actor := requestcontext.Actor(ctx)
	if actor.Anonymous() {
		return id.UserID{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !actor.Superuser && !actor.InGroup(authz.GroupGovernment) {
		return id.UserID{}, dErrors.New(dErrors.CodeForbidden, "government role required")
	}
	return actor.UserID, nil
}

// canManage reports whether the actor may manage the institution: superuser
// or staff member.
func canManage(ctx context.Context, inst *Institution) (id.UserID, bool) {
	actor := requestcontext.Actor(ctx)
	if actor.Anonymous() {
		return id.UserID{}, false
	}
	if actor.Superuser || inst.IsStaff(actor.UserID) {
		return actor.UserID, true
	}
	return actor.UserID, false
}

// Create registers a new institution, pending verification. Government only.
func (s *Service) Create(ctx context.Context, name, code, contactEmail string) (*Institution, error) {
	actorID, err := requireGovernment(ctx)
	if err != nil {
		return nil, err
	}

	inst, err := NewInstitution(id.NewInstitutionID(), name, code, contactEmail, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.insts.CreateIfCodeAvailable(ctx, inst); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "institution code must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create institution")
	}

	s.recorder.Record(ctx, &actorID, audit.ActionInstitutionAdded,
		fmt.Sprintf("Added institution %s", inst.ID))
	return inst, nil
}

// Get returns one institution.
func (s *Service) Get(ctx context.Context, institutionID id.InstitutionID) (*Institution, error) {
	inst, err := s.insts.FindByID(ctx, institutionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "institution not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load institution")
	}
	return inst, nil
}

// List returns all institutions. Government only.
func (s *Service) List(ctx context.Context) ([]*Institution, error) {
	if _, err := requireGovernment(ctx); err != nil {
		return nil, err
	}
	insts, err := s.insts.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list institutions")
	}
	return insts, nil
}

// ListMine returns institutions the actor staffs.
func (s *Service) ListMine(ctx context.Context) ([]*Institution, error) {
	actor := requestcontext.Actor(ctx)
	if actor.Anonymous() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	insts, err := s.insts.ListByStaff(ctx, actor.UserID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list institutions")
	}
	return insts, nil
}

// SetVerified toggles the verified flag. Government only. Unlike Business,
// institutions track only the boolean.
func (s *Service) SetVerified(ctx context.Context, institutionID id.InstitutionID, verified bool) (*Institution, error) {
	actorID, err := requireGovernment(ctx)
	if err != nil {
		return nil, err
	}
	inst, err := s.Get(ctx, institutionID)
	if err != nil {
		return nil, err
	}

	inst.Verified = verified
	if err := s.insts.Update(ctx, inst); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update institution")
	}

	action := audit.ActionInstitutionVerified
	detail := fmt.Sprintf("Verified institution %s", inst.ID)
	if !verified {
		action = audit.ActionInstitutionUnverified
		detail = fmt.Sprintf("Unverified institution %s", inst.ID)
	}
	s.recorder.Record(ctx, &actorID, action, detail)
	return inst, nil
}

// SetStaff replaces the staff set. Government only.
func (s *Service) SetStaff(ctx context.Context, institutionID id.InstitutionID, staff []id.UserID) (*Institution, error) {
	if _, err := requireGovernment(ctx); err != nil {
		return nil, err
	}
	inst, err := s.Get(ctx, institutionID)
	if err != nil {
		return nil, err
	}
	inst.Staff = staff
	if err := s.insts.Update(ctx, inst); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update institution staff")
	}
	return inst, nil
}

// Delete removes an institution and cascades its certificates. Government
// only.
func (s *Service) Delete(ctx context.Context, institutionID id.InstitutionID) error {
	if _, err := requireGovernment(ctx); err != nil {
		return err
	}
	if err := s.certs.DeleteByInstitution(ctx, institutionID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete certificates")
	}
	if err := s.insts.Delete(ctx, institutionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "institution not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete institution")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Certificate management
// -----------------------------------------------------------------------------

// CertificateParams are the writable certificate fields.
type CertificateParams struct {
	OwnerIDNo            string
	OwnerName            string
	DegreeName           string
	Program              string
	ConferralDate        *time.Time
	CertificateReference string
}

// resolveOwnerLink re-resolves the owner link from the denormalized ID
// number. Runs on every save: a profile registered after the save is picked
// up the next time the certificate is saved, not retroactively.
func (s *Service) resolveOwnerLink(ctx context.Context, cert *Certificate) error {
	exists, err := s.owners.Exists(ctx, cert.OwnerIDNo)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve owner link")
	}
	if exists {
		linked := cert.OwnerIDNo
		cert.LinkedOwner = &linked
	} else {
		cert.LinkedOwner = nil
	}
	return nil
}

func (s *Service) manageableInstitution(ctx context.Context, institutionID id.InstitutionID) (*Institution, id.UserID, error) {
	inst, err := s.Get(ctx, institutionID)
	if err != nil {
		return nil, id.UserID{}, err
	}
	actorID, ok := canManage(ctx, inst)
	if !ok {
		return nil, id.UserID{}, dErrors.New(dErrors.CodeForbidden, "you are not authorized to manage this institution")
	}
	return inst, actorID, nil
}

// CreateCertificate records a conferred credential for an institution.
// Requires superuser or institution staff.
func (s *Service) CreateCertificate(ctx context.Context, institutionID id.InstitutionID, params CertificateParams) (*Certificate, error) {
	inst, actorID, err := s.manageableInstitution(ctx, institutionID)
	if err != nil {
		return nil, err
	}

	idNo := strings.TrimSpace(params.OwnerIDNo)
	if idNo == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "owner_id_no is required")
	}

	cert := &Certificate{
		ID:                   id.NewCertificateID(),
		InstitutionID:        inst.ID,
		OwnerIDNo:            idNo,
		OwnerName:            strings.TrimSpace(params.OwnerName),
		DegreeName:           strings.TrimSpace(params.DegreeName),
		Program:              strings.TrimSpace(params.Program),
		ConferralDate:        params.ConferralDate,
		CertificateReference: strings.TrimSpace(params.CertificateReference),
		CreatedAt:            requestcontext.Now(ctx),
	}
	if err := s.resolveOwnerLink(ctx, cert); err != nil {
		return nil, err
	}
	if err := s.certs.Create(ctx, cert); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create certificate")
	}

	s.recorder.Record(ctx, &actorID, audit.ActionCertificateAdded,
		fmt.Sprintf("Added certificate %s for institution %s", cert.ID, inst.ID))
	return cert, nil
}

// UpdateCertificate edits a certificate, re-resolving the owner link.
func (s *Service) UpdateCertificate(ctx context.Context, institutionID id.InstitutionID, certID id.CertificateID, params CertificateParams) (*Certificate, error) {
	inst, actorID, err := s.manageableInstitution(ctx, institutionID)
	if err != nil {
		return nil, err
	}
	cert, err := s.certificateOf(ctx, inst, certID)
	if err != nil {
		return nil, err
	}

	idNo := strings.TrimSpace(params.OwnerIDNo)
	if idNo == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "owner_id_no is required")
	}

	cert.OwnerIDNo = idNo
	cert.OwnerName = strings.TrimSpace(params.OwnerName)
	cert.DegreeName = strings.TrimSpace(params.DegreeName)
	cert.Program = strings.TrimSpace(params.Program)
	cert.ConferralDate = params.ConferralDate
	cert.CertificateReference = strings.TrimSpace(params.CertificateReference)

	if err := s.resolveOwnerLink(ctx, cert); err != nil {
		return nil, err
	}
	if err := s.certs.Update(ctx, cert); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update certificate")
	}

	s.recorder.Record(ctx, &actorID, audit.ActionCertificateEdited,
		fmt.Sprintf("Edited certificate %s for institution %s", cert.ID, inst.ID))
	return cert, nil
}

// DeleteCertificate removes a certificate.
func (s *Service) DeleteCertificate(ctx context.Context, institutionID id.InstitutionID, certID id.CertificateID) error {
	inst, actorID, err := s.manageableInstitution(ctx, institutionID)
	if err != nil {
		return err
	}
	cert, err := s.certificateOf(ctx, inst, certID)
	if err != nil {
		return err
	}
	if err := s.certs.Delete(ctx, cert.ID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete certificate")
	}

	s.recorder.Record(ctx, &actorID, audit.ActionCertificateDeleted,
		fmt.Sprintf("Deleted certificate %s for institution %s", cert.ID, inst.ID))
	return nil
}

// ListCertificates returns an institution's certificates, newest first.
func (s *Service) ListCertificates(ctx context.Context, institutionID id.InstitutionID) ([]*Certificate, error) {
	inst, _, err := s.manageableInstitution(ctx, institutionID)
	if err != nil {
		return nil, err
	}
	certs, err := s.certs.ListByInstitution(ctx, inst.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list certificates")
	}
	return certs, nil
}

// CertificatesForOwner matches certificates by the denormalized owner ID
// number. Internal surface used by the verification workflow; the workflow
// gates access.
func (s *Service) CertificatesForOwner(ctx context.Context, idNo string) ([]*Certificate, error) {
	certs, err := s.certs.ListByOwnerIDNo(ctx, idNo)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list certificates")
	}
	return certs, nil
}

// certificateOf loads a certificate and enforces that it belongs to the
// institution; cross-institution IDs read as not found.
func (s *Service) certificateOf(ctx context.Context, inst *Institution, certID id.CertificateID) (*Certificate, error) {
	cert, err := s.certs.FindByID(ctx, certID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate")
	}
	if cert.InstitutionID != inst.ID {
		return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
	}
	return cert, nil
}
