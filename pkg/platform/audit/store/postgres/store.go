package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "certiva/pkg/domain"
	"certiva/pkg/platform/audit"
)

// Store persists audit events in PostgreSQL. Pure I/O; no domain logic.
// The audit_log table has no update or delete path.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_log (id, actor, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	var actor *uuid.UUID
	if event.Actor != nil {
		u := uuid.UUID(*event.Actor)
		actor = &u
	}
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		actor,
		string(event.Action),
		event.Details,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT actor, action, details, created_at
		FROM audit_log
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			event audit.Event
			actor *uuid.UUID
		)
		if err := rows.Scan(&actor, &event.Action, &event.Details, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if actor != nil {
			uid := id.UserID(*actor)
			event.Actor = &uid
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
