package verification

import (
	"context"

	id "certiva/pkg/domain"
)

// Store persists verification requests. Requests are append-and-mutate:
// there is no delete path.
type Store interface {
	Create(ctx context.Context, req *Request) error
	FindByID(ctx context.Context, requestID id.RequestID) (*Request, error)
	// FindLatestPendingByIDNoAndOTP matches on exact string equality for
	// both values and tie-breaks by newest created_at. Returns
	// sentinel.ErrNotFound when nothing pending matches, whether the OTP is
	// wrong or no request exists.
	FindLatestPendingByIDNoAndOTP(ctx context.Context, idNo, otp string) (*Request, error)
	// List returns all requests, newest first.
	List(ctx context.Context) ([]*Request, error)
	// ListVisibleTo returns requests created by the user or targeting any of
	// the given businesses, newest first.
	ListVisibleTo(ctx context.Context, userID id.UserID, businessIDs []id.BusinessID) ([]*Request, error)
	// CountByStatus returns the number of requests in the given status.
	CountByStatus(ctx context.Context, status Status) (int, error)
	// Execute atomically runs validate then mutate against the stored
	// request. If validate fails the request is returned unchanged alongside
	// the validation error; mutations are persisted before Execute returns.
	// This is the compare-and-swap every status transition goes through:
	// concurrent confirms serialize here, so only one observes pending.
	Execute(ctx context.Context, requestID id.RequestID, validate func(*Request) error, mutate func(*Request)) (*Request, error)
}
