package notification

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/stanstork/sponsordesk-api/internal/models"
)

// Notifier receives every notification after it has been stored.
type Notifier interface {
	Notify(ctx context.Context, notification models.Notification) error
}

type ChangeKind string

const (
	ChangeInsert ChangeKind = "INSERT"
	ChangeUpdate ChangeKind = "UPDATE"
	ChangeDelete ChangeKind = "DELETE"
)

// ChangeEvent tells a subscriber that its notification list changed. It
// carries no payload; subscribers re-fetch.
type ChangeEvent struct {
	Event ChangeKind `json:"event"`
	ID    string     `json:"id,omitempty"`
}

// ChangeListener is implemented by notifiers that also want read/delete changes.
type ChangeListener interface {
	Changed(userEmail string, evt ChangeEvent)
}

func logNotifyError(logger zerolog.Logger, err error, channel string, notif models.Notification) {
	if err == nil {
		return
	}
	logger.Warn().
		Err(err).
		Str("notification_id", notif.ID).
		Str("type", string(notif.Type)).
		Str("channel", channel).
		Msg("failed to deliver notification")
}
