package audit

import "context"

// Store persists audit events. Append-only by contract: implementations must
// not expose update or delete.
type Store interface {
	Append(ctx context.Context, event Event) error
	// ListRecent returns up to limit events, newest first. Used by admin
	// surfaces only, never by domain logic.
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
