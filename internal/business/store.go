package business

import (
	"context"

	id "certiva/pkg/domain"
)

// Store persists businesses.
type Store interface {
	// CreateIfRegistrationAvailable inserts the business, returning
	// sentinel.ErrAlreadyUsed when the registration number is taken.
	CreateIfRegistrationAvailable(ctx context.Context, biz *Business) error
	FindByID(ctx context.Context, businessID id.BusinessID) (*Business, error)
	List(ctx context.Context) ([]*Business, error)
	// ListByStaff returns businesses the user staffs.
	ListByStaff(ctx context.Context, userID id.UserID) ([]*Business, error)
	Update(ctx context.Context, biz *Business) error
	Delete(ctx context.Context, businessID id.BusinessID) error
	// Count returns the number of stored businesses.
	Count(ctx context.Context) (int, error)
}
