package business

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "certiva/pkg/domain"
	"certiva/pkg/platform/sentinel"
)

// PostgresStore persists businesses and their staff relation. Staff lives in
// a business_staff join table reconciled on Update.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const businessColumns = `id, name, registration_number, contact_email, address, registered_by, verified, verified_by, verified_at, created_at`

func (s *PostgresStore) CreateIfRegistrationAvailable(ctx context.Context, biz *Business) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert business: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO businesses (` + businessColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (registration_number) DO NOTHING
	`
	res, err := tx.ExecContext(ctx, query,
		uuid.UUID(biz.ID), biz.Name, biz.RegistrationNumber, biz.ContactEmail, biz.Address,
		uuid.UUID(biz.RegisteredBy), biz.Verified, verifiedByArg(biz), biz.VerifiedAt, biz.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert business: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert business: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrAlreadyUsed
	}

	for _, staff := range biz.Staff {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO business_staff (business_id, user_id) VALUES ($1, $2)`,
			uuid.UUID(biz.ID), uuid.UUID(staff),
		); err != nil {
			return fmt.Errorf("insert business staff: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert business: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, businessID id.BusinessID) (*Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE id = $1`
	biz, err := scanBusiness(s.db.QueryRowContext(ctx, query, uuid.UUID(businessID)))
	if err != nil {
		return nil, err
	}
	if err := s.loadStaff(ctx, biz); err != nil {
		return nil, err
	}
	return biz, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list businesses: %w", err)
	}
	defer rows.Close()
	return s.collect(ctx, rows)
}

func (s *PostgresStore) ListByStaff(ctx context.Context, userID id.UserID) ([]*Business, error) {
	query := `
		SELECT b.id, b.name, b.registration_number, b.contact_email, b.address,
		       b.registered_by, b.verified, b.verified_by, b.verified_at, b.created_at
		FROM businesses b
		JOIN business_staff st ON st.business_id = b.id
		WHERE st.user_id = $1
		ORDER BY b.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list businesses by staff: %w", err)
	}
	defer rows.Close()
	return s.collect(ctx, rows)
}

func (s *PostgresStore) Update(ctx context.Context, biz *Business) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update business: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		UPDATE businesses
		SET name = $2, registration_number = $3, contact_email = $4, address = $5,
		    verified = $6, verified_by = $7, verified_at = $8
		WHERE id = $1
	`
	res, err := tx.ExecContext(ctx, query,
		uuid.UUID(biz.ID), biz.Name, biz.RegistrationNumber, biz.ContactEmail, biz.Address,
		biz.Verified, verifiedByArg(biz), biz.VerifiedAt,
	)
	if err != nil {
		return fmt.Errorf("update business: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update business: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM business_staff WHERE business_id = $1`, uuid.UUID(biz.ID)); err != nil {
		return fmt.Errorf("reset business staff: %w", err)
	}
	for _, staff := range biz.Staff {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO business_staff (business_id, user_id) VALUES ($1, $2)`,
			uuid.UUID(biz.ID), uuid.UUID(staff),
		); err != nil {
			return fmt.Errorf("insert business staff: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update business: %w", err)
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM businesses`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count businesses: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Delete(ctx context.Context, businessID id.BusinessID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM businesses WHERE id = $1`, uuid.UUID(businessID))
	if err != nil {
		return fmt.Errorf("delete business: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete business: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) collect(ctx context.Context, rows *sql.Rows) ([]*Business, error) {
	var out []*Business
	for rows.Next() {
		biz, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, biz)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate businesses: %w", err)
	}
	for _, biz := range out {
		if err := s.loadStaff(ctx, biz); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) loadStaff(ctx context.Context, biz *Business) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM business_staff WHERE business_id = $1`, uuid.UUID(biz.ID))
	if err != nil {
		return fmt.Errorf("load business staff: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			return fmt.Errorf("scan business staff: %w", err)
		}
		biz.Staff = append(biz.Staff, id.UserID(userID))
	}
	return rows.Err()
}

func verifiedByArg(biz *Business) any {
	if biz.VerifiedBy == nil {
		return nil
	}
	return uuid.UUID(*biz.VerifiedBy)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBusiness(row rowScanner) (*Business, error) {
	var (
		biz          Business
		bizID        uuid.UUID
		registeredBy uuid.UUID
		verifiedBy   uuid.NullUUID
	)
	err := row.Scan(&bizID, &biz.Name, &biz.RegistrationNumber, &biz.ContactEmail,
		&biz.Address, &registeredBy, &biz.Verified, &verifiedBy, &biz.VerifiedAt, &biz.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan business: %w", err)
	}
	biz.ID = id.BusinessID(bizID)
	biz.RegisteredBy = id.UserID(registeredBy)
	if verifiedBy.Valid {
		by := id.UserID(verifiedBy.UUID)
		biz.VerifiedBy = &by
	}
	return &biz, nil
}
