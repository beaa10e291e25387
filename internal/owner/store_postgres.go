package owner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"certiva/pkg/platform/sentinel"
)

// PostgresStore persists owner profiles in PostgreSQL. Pure I/O; validation
// belongs in the service.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, profile Profile) (Profile, error) {
	query := `
		INSERT INTO owner_profiles (id_no, full_name, mobile, email, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id_no) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			mobile = EXCLUDED.mobile,
			email = EXCLUDED.email
		RETURNING id_no, full_name, mobile, email, created_at
	`
	row := s.db.QueryRowContext(ctx, query,
		profile.IDNo, profile.FullName, profile.Mobile, profile.Email, profile.CreatedAt,
	)
	var stored Profile
	if err := row.Scan(&stored.IDNo, &stored.FullName, &stored.Mobile, &stored.Email, &stored.CreatedAt); err != nil {
		return Profile{}, fmt.Errorf("upsert owner profile: %w", err)
	}
	return stored, nil
}

func (s *PostgresStore) FindByIDNo(ctx context.Context, idNo string) (Profile, error) {
	query := `
		SELECT id_no, full_name, mobile, email, created_at
		FROM owner_profiles
		WHERE id_no = $1
	`
	var profile Profile
	err := s.db.QueryRowContext(ctx, query, idNo).Scan(
		&profile.IDNo, &profile.FullName, &profile.Mobile, &profile.Email, &profile.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, sentinel.ErrNotFound
		}
		return Profile{}, fmt.Errorf("find owner profile: %w", err)
	}
	return profile, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM owner_profiles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count owner profiles: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Delete(ctx context.Context, idNo string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM owner_profiles WHERE id_no = $1`, idNo)
	if err != nil {
		return fmt.Errorf("delete owner profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete owner profile: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
