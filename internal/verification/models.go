// Package verification implements the OTP-gated verification request
// lifecycle: HR staff request access to an owner's certificates, the owner
// confirms with a one-time code, and the requester views the records while
// the request is confirmed and unexpired.
package verification

import (
	"math/rand"
	"strconv"
	"time"

	id "certiva/pkg/domain"
)

// Status is the request lifecycle state. Exactly one at any time.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusExpired   Status = "expired"
)

// OTPWindow is the confirmation window. Set at creation, never extended.
const OTPWindow = 10 * time.Minute

// Request is the stateful verification entity.
//
// Invariants:
//   - Status is exactly one of pending, confirmed, expired
//   - OTPExpiresAt is fixed at creation
//   - Rows are never deleted; user or business deletion nulls the link
//
// Expiry is lazy: there is no sweeper, any reader noticing an overdue
// pending request persists the expired state before returning it.
type Request struct {
	ID           id.RequestID   `json:"id"`
	HRUser       *id.UserID     `json:"hr_user,omitempty"`
	Business     *id.BusinessID `json:"business,omitempty"`
	IDNo         string         `json:"id_no"`
	OTP          string         `json:"-"`
	OTPExpiresAt time.Time      `json:"otp_expires_at"`
	Status       Status         `json:"status"`
	ConfirmedAt  *time.Time     `json:"confirmed_at,omitempty"`
	ViewedAt     *time.Time     `json:"viewed_at,omitempty"`
	Note         string         `json:"note,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// IsExpired reports whether the confirmation window has passed. Pure
// function of the clock; persisting the derived state is the reader's job.
func (r *Request) IsExpired(now time.Time) bool {
	return now.After(r.OTPExpiresAt)
}

// GenerateOTP produces a 6-digit decimal code. Uniform random over
// 100000..999999; a usability token, not a security primitive.
func GenerateOTP() string {
	return strconv.Itoa(100000 + rand.Intn(900000))
}
