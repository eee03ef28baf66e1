package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/stanstork/sponsordesk-api/internal/apperr"
	"github.com/stanstork/sponsordesk-api/internal/models"
)

type SettingsRepository interface {
	Get(ctx context.Context, userEmail string) (models.NotificationSettings, error)
	Create(ctx context.Context, settings models.NotificationSettings) (models.NotificationSettings, error)
	Update(ctx context.Context, settings models.NotificationSettings) (models.NotificationSettings, error)
}

type settingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

const settingsColumns = `id, user_email, notify_payments_due, notify_publish_due, notify_status_changes,
		notify_overdue, payment_reminder_days, publish_reminder_days, created_at, updated_at`

func (r *settingsRepository) Get(ctx context.Context, userEmail string) (models.NotificationSettings, error) {
	query := `
		SELECT ` + settingsColumns + `
		FROM creator.notification_settings
		WHERE user_email = $1
	`
	s, err := scanSettings(r.db.QueryRowContext(ctx, query, strings.TrimSpace(userEmail)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.NotificationSettings{}, apperr.ErrNotFound
	}
	return s, apperr.Store("settings.get", err)
}

// Create inserts the row, returning the existing one if another request created it first.
func (r *settingsRepository) Create(ctx context.Context, s models.NotificationSettings) (models.NotificationSettings, error) {
	query := `
		INSERT INTO creator.notification_settings (
			user_email, notify_payments_due, notify_publish_due, notify_status_changes,
			notify_overdue, payment_reminder_days, publish_reminder_days
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_email) DO UPDATE SET user_email = EXCLUDED.user_email
		RETURNING ` + settingsColumns

	created, err := scanSettings(r.db.QueryRowContext(ctx, query,
		strings.TrimSpace(s.UserEmail),
		s.NotifyPaymentsDue,
		s.NotifyPublishDue,
		s.NotifyStatusChanges,
		s.NotifyOverdue,
		s.PaymentReminderDays,
		s.PublishReminderDays,
	))
	return created, apperr.Store("settings.create", err)
}

func (r *settingsRepository) Update(ctx context.Context, s models.NotificationSettings) (models.NotificationSettings, error) {
	query := `
		UPDATE creator.notification_settings
		SET notify_payments_due = $2,
			notify_publish_due = $3,
			notify_status_changes = $4,
			notify_overdue = $5,
			payment_reminder_days = $6,
			publish_reminder_days = $7,
			updated_at = NOW()
		WHERE user_email = $1
		RETURNING ` + settingsColumns

	updated, err := scanSettings(r.db.QueryRowContext(ctx, query,
		strings.TrimSpace(s.UserEmail),
		s.NotifyPaymentsDue,
		s.NotifyPublishDue,
		s.NotifyStatusChanges,
		s.NotifyOverdue,
		s.PaymentReminderDays,
		s.PublishReminderDays,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return models.NotificationSettings{}, apperr.ErrNotFound
	}
	return updated, apperr.Store("settings.update", err)
}

func scanSettings(scanner interface {
	Scan(dest ...interface{}) error
}) (models.NotificationSettings, error) {
	var s models.NotificationSettings
	err := scanner.Scan(
		&s.ID,
		&s.UserEmail,
		&s.NotifyPaymentsDue,
		&s.NotifyPublishDue,
		&s.NotifyStatusChanges,
		&s.NotifyOverdue,
		&s.PaymentReminderDays,
		&s.PublishReminderDays,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}
