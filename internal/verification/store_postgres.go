package verification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "certiva/pkg/domain"
	"certiva/pkg/platform/sentinel"
)

// PostgresStore persists verification requests. Execute takes a row lock so
// concurrent transitions against the same request serialize; only the first
// observes pending.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const requestColumns = `id, hr_user, business_id, id_no, otp, otp_expires_at, status, confirmed_at, viewed_at, note, created_at`

func (s *PostgresStore) Create(ctx context.Context, req *Request) error {
	query := `
		INSERT INTO verification_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(req.ID), userIDArg(req.HRUser), businessIDArg(req.Business),
		req.IDNo, req.OTP, req.OTPExpiresAt, string(req.Status),
		req.ConfirmedAt, req.ViewedAt, req.Note, req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert verification request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.RequestID) (*Request, error) {
	query := `SELECT ` + requestColumns + ` FROM verification_requests WHERE id = $1`
	return scanRequest(s.db.QueryRowContext(ctx, query, uuid.UUID(requestID)))
}

func (s *PostgresStore) FindLatestPendingByIDNoAndOTP(ctx context.Context, idNo, otp string) (*Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM verification_requests
		WHERE id_no = $1 AND otp = $2 AND status = $3
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanRequest(s.db.QueryRowContext(ctx, query, idNo, otp, string(StatusPending)))
}

func (s *PostgresStore) List(ctx context.Context) ([]*Request, error) {
	query := `SELECT ` + requestColumns + ` FROM verification_requests ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list verification requests: %w", err)
	}
	defer rows.Close()
	return collectRequests(rows)
}

func (s *PostgresStore) ListVisibleTo(ctx context.Context, userID id.UserID, businessIDs []id.BusinessID) ([]*Request, error) {
	ids := make([]uuid.UUID, len(businessIDs))
	for i, b := range businessIDs {
		ids[i] = uuid.UUID(b)
	}
	query := `
		SELECT ` + requestColumns + `
		FROM verification_requests
		WHERE hr_user = $1 OR business_id = ANY($2)
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID), pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list visible verification requests: %w", err)
	}
	defer rows.Close()
	return collectRequests(rows)
}

func (s *PostgresStore) CountByStatus(ctx context.Context, status Status) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM verification_requests WHERE status = $1`
	if err := s.db.QueryRowContext(ctx, query, string(status)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count verification requests: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Execute(ctx context.Context, requestID id.RequestID, validate func(*Request) error, mutate func(*Request)) (*Request, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin request transition: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + requestColumns + ` FROM verification_requests WHERE id = $1 FOR UPDATE`
	req, err := scanRequest(tx.QueryRowContext(ctx, query, uuid.UUID(requestID)))
	if err != nil {
		return nil, err
	}

	if err := validate(req); err != nil {
		return req, err
	}
	mutate(req)

	update := `
		UPDATE verification_requests
		SET status = $2, confirmed_at = $3, viewed_at = $4, note = $5
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, update,
		uuid.UUID(req.ID), string(req.Status), req.ConfirmedAt, req.ViewedAt, req.Note,
	); err != nil {
		return nil, fmt.Errorf("update verification request: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit request transition: %w", err)
	}
	return req, nil
}

func collectRequests(rows *sql.Rows) ([]*Request, error) {
	var out []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verification requests: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*Request, error) {
	var (
		req      Request
		reqID    uuid.UUID
		hrUser   uuid.NullUUID
		business uuid.NullUUID
		status   string
	)
	err := row.Scan(&reqID, &hrUser, &business, &req.IDNo, &req.OTP,
		&req.OTPExpiresAt, &status, &req.ConfirmedAt, &req.ViewedAt,
		&req.Note, &req.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan verification request: %w", err)
	}
	req.ID = id.RequestID(reqID)
	req.Status = Status(status)
	if hrUser.Valid {
		u := id.UserID(hrUser.UUID)
		req.HRUser = &u
	}
	if business.Valid {
		b := id.BusinessID(business.UUID)
		req.Business = &b
	}
	return &req, nil
}

func userIDArg(userID *id.UserID) any {
	if userID == nil {
		return nil
	}
	return uuid.UUID(*userID)
}

func businessIDArg(businessID *id.BusinessID) any {
	if businessID == nil {
		return nil
	}
	return uuid.UUID(*businessID)
}
