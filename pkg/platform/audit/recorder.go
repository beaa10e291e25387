package audit

import (
	"context"
	"log/slog"

	id "certiva/pkg/domain"
	"certiva/pkg/requestcontext"
)

// Publisher fans events out to an external sink (Kafka). Optional.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Recorder is the best-effort audit emitter services use. Append failures are
// logged and swallowed: audit is a side-effect sink and must never block or
// fail a domain transition.
type Recorder struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
}

// NewRecorder builds a Recorder. publisher may be nil when no external sink
// is configured.
func NewRecorder(store Store, publisher Publisher, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, publisher: publisher, logger: logger}
}

// Record appends an event attributed to actor. A nil actor records an
// unattributed event (e.g. owner OTP confirmation).
func (r *Recorder) Record(ctx context.Context, actor *id.UserID, action Action, details string) {
	event := Event{
		Actor:     actor,
		Action:    action,
		Details:   details,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := r.store.Append(ctx, event); err != nil {
		r.logger.ErrorContext(ctx, "audit append failed",
			"action", string(action),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if r.publisher != nil {
		r.publisher.Publish(ctx, event)
	}
}
