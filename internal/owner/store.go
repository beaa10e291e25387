package owner

import "context"

// Store persists owner profiles keyed by national ID.
type Store interface {
	// Upsert creates the profile or updates contact fields in place,
	// preserving CreatedAt on update. Returns the stored profile.
	Upsert(ctx context.Context, profile Profile) (Profile, error)
	// FindByIDNo returns sentinel.ErrNotFound when no profile exists.
	FindByIDNo(ctx context.Context, idNo string) (Profile, error)
	// Delete removes a profile. Only the admin surface calls this; the
	// certificate link nulling it triggers is handled by the caller (or by
	// the database's ON DELETE SET NULL).
	Delete(ctx context.Context, idNo string) error
	// Count returns the number of stored profiles.
	Count(ctx context.Context) (int, error)
}
