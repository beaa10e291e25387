package institution

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "certiva/pkg/domain"
	"certiva/pkg/platform/sentinel"
)

// PostgresStore persists institutions and their staff relation.
// Staff lives in an institution_staff join table reconciled on Update.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateIfCodeAvailable(ctx context.Context, inst *Institution) error {
	query := `
		INSERT INTO institutions (id, name, code, contact_email, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(inst.ID), inst.Name, inst.Code, inst.ContactEmail, inst.Verified, inst.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert institution: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert institution: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, institutionID id.InstitutionID) (*Institution, error) {
	query := `
		SELECT id, name, code, contact_email, verified, created_at
		FROM institutions
		WHERE id = $1
	`
	inst, err := scanInstitution(s.db.QueryRowContext(ctx, query, uuid.UUID(institutionID)))
	if err != nil {
		return nil, err
	}
	if err := s.loadStaff(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Institution, error) {
	query := `
		SELECT id, name, code, contact_email, verified, created_at
		FROM institutions
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list institutions: %w", err)
	}
	defer rows.Close()
	return s.collect(ctx, rows)
}

func (s *PostgresStore) ListByStaff(ctx context.Context, userID id.UserID) ([]*Institution, error) {
	query := `
		SELECT i.id, i.name, i.code, i.contact_email, i.verified, i.created_at
		FROM institutions i
		JOIN institution_staff st ON st.institution_id = i.id
		WHERE st.user_id = $1
		ORDER BY i.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list institutions by staff: %w", err)
	}
	defer rows.Close()
	return s.collect(ctx, rows)
}

func (s *PostgresStore) Update(ctx context.Context, inst *Institution) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update institution: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		UPDATE institutions
		SET name = $2, code = $3, contact_email = $4, verified = $5
		WHERE id = $1
	`
	res, err := tx.ExecContext(ctx, query,
		uuid.UUID(inst.ID), inst.Name, inst.Code, inst.ContactEmail, inst.Verified,
	)
	if err != nil {
		return fmt.Errorf("update institution: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update institution: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM institution_staff WHERE institution_id = $1`, uuid.UUID(inst.ID)); err != nil {
		return fmt.Errorf("reset institution staff: %w", err)
	}
	for _, staff := range inst.Staff {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO institution_staff (institution_id, user_id) VALUES ($1, $2)`,
			uuid.UUID(inst.ID), uuid.UUID(staff),
		); err != nil {
			return fmt.Errorf("insert institution staff: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update institution: %w", err)
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM institutions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count institutions: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Delete(ctx context.Context, institutionID id.InstitutionID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM institutions WHERE id = $1`, uuid.UUID(institutionID))
	if err != nil {
		return fmt.Errorf("delete institution: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete institution: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) collect(ctx context.Context, rows *sql.Rows) ([]*Institution, error) {
	var out []*Institution
	for rows.Next() {
		inst, err := scanInstitution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate institutions: %w", err)
	}
	for _, inst := range out {
		if err := s.loadStaff(ctx, inst); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) loadStaff(ctx context.Context, inst *Institution) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM institution_staff WHERE institution_id = $1`, uuid.UUID(inst.ID))
	if err != nil {
		return fmt.Errorf("load institution staff: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			return fmt.Errorf("scan institution staff: %w", err)
		}
		inst.Staff = append(inst.Staff, id.UserID(userID))
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstitution(row rowScanner) (*Institution, error) {
	var (
		inst   Institution
		instID uuid.UUID
	)
	err := row.Scan(&instID, &inst.Name, &inst.Code, &inst.ContactEmail, &inst.Verified, &inst.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan institution: %w", err)
	}
	inst.ID = id.InstitutionID(instID)
	return &inst, nil
}

// PostgresCertificateStore persists certificates. The owner link column
// carries ON DELETE SET NULL so profile deletion nulls links at the database
// level; UnlinkOwner covers the same transition for callers that manage the
// cascade themselves.
type PostgresCertificateStore struct {
	db *sql.DB
}

func NewPostgresCertificates(db *sql.DB) *PostgresCertificateStore {
	return &PostgresCertificateStore{db: db}
}

const certificateColumns = `id, institution_id, owner_id_no, owner_ref, owner_name, degree_name, program, conferral_date, certificate_reference, created_at`

func (s *PostgresCertificateStore) Create(ctx context.Context, cert *Certificate) error {
	query := `
		INSERT INTO certificates (` + certificateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(cert.ID), uuid.UUID(cert.InstitutionID), cert.OwnerIDNo, cert.LinkedOwner,
		cert.OwnerName, cert.DegreeName, cert.Program, cert.ConferralDate,
		cert.CertificateReference, cert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (s *PostgresCertificateStore) FindByID(ctx context.Context, certID id.CertificateID) (*Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE id = $1`
	return scanCertificate(s.db.QueryRowContext(ctx, query, uuid.UUID(certID)))
}

func (s *PostgresCertificateStore) Update(ctx context.Context, cert *Certificate) error {
	query := `
		UPDATE certificates
		SET owner_id_no = $2, owner_ref = $3, owner_name = $4, degree_name = $5,
		    program = $6, conferral_date = $7, certificate_reference = $8
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(cert.ID), cert.OwnerIDNo, cert.LinkedOwner, cert.OwnerName,
		cert.DegreeName, cert.Program, cert.ConferralDate, cert.CertificateReference,
	)
	if err != nil {
		return fmt.Errorf("update certificate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update certificate: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresCertificateStore) Delete(ctx context.Context, certID id.CertificateID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM certificates WHERE id = $1`, uuid.UUID(certID))
	if err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresCertificateStore) ListByInstitution(ctx context.Context, institutionID id.InstitutionID) ([]*Certificate, error) {
	query := `
		SELECT ` + certificateColumns + `
		FROM certificates
		WHERE institution_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(institutionID))
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()
	return collectCertificates(rows)
}

func (s *PostgresCertificateStore) ListByOwnerIDNo(ctx context.Context, idNo string) ([]*Certificate, error) {
	query := `
		SELECT ` + certificateColumns + `
		FROM certificates
		WHERE owner_id_no = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, idNo)
	if err != nil {
		return nil, fmt.Errorf("list certificates by owner: %w", err)
	}
	defer rows.Close()
	return collectCertificates(rows)
}

func (s *PostgresCertificateStore) UnlinkOwner(ctx context.Context, idNo string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE certificates SET owner_ref = NULL WHERE owner_ref = $1`, idNo)
	if err != nil {
		return fmt.Errorf("unlink certificates: %w", err)
	}
	return nil
}

func (s *PostgresCertificateStore) DeleteByInstitution(ctx context.Context, institutionID id.InstitutionID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM certificates WHERE institution_id = $1`, uuid.UUID(institutionID))
	if err != nil {
		return fmt.Errorf("delete certificates by institution: %w", err)
	}
	return nil
}

func collectCertificates(rows *sql.Rows) ([]*Certificate, error) {
	var out []*Certificate
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificates: %w", err)
	}
	return out, nil
}

func scanCertificate(row rowScanner) (*Certificate, error) {
	var (
		cert   Certificate
		certID uuid.UUID
		instID uuid.UUID
	)
	err := row.Scan(&certID, &instID, &cert.OwnerIDNo, &cert.LinkedOwner,
		&cert.OwnerName, &cert.DegreeName, &cert.Program, &cert.ConferralDate,
		&cert.CertificateReference, &cert.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan certificate: %w", err)
	}
	cert.ID = id.CertificateID(certID)
	cert.InstitutionID = id.InstitutionID(instID)
	return &cert, nil
}
