package consumer

import (
	"context"

	"example.com/bjjpoints/internal/events"
)

// Notifier receives change notifications derived from consumed events.
type Notifier interface {
	Notify(ctx context.Context, change events.Change)
}

// RealtimeHandler turns change events into leaderboard refresh notifications.
type RealtimeHandler struct {
	notifier Notifier
}

// NewRealtimeHandler constructs a handler forwarding to the notifier.
func NewRealtimeHandler(notifier Notifier) *RealtimeHandler {
	return &RealtimeHandler{notifier: notifier}
}

// Handle forwards events with a known scope. Events without one are acknowledged and skipped.
func (h *RealtimeHandler) Handle(ctx context.Context, msg Message) error {
	if !msg.Scope.Valid() {
		return nil
	}
	h.notifier.Notify(ctx, events.Change{
		Type:      msg.EventType,
		SubjectID: msg.SubjectID,
		Scope:     msg.Scope,
	})
	return nil
}
