package repository

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stanstork/sponsordesk-api/internal/apperr"
	"github.com/stanstork/sponsordesk-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var settingsCols = []string{"id", "user_email", "notify_payments_due", "notify_publish_due", "notify_status_changes",
	"notify_overdue", "payment_reminder_days", "publish_reminder_days", "created_at", "updated_at"}

func TestSettingsGetMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSettingsRepository(db)

	mock.ExpectQuery(`FROM creator.notification_settings\s+WHERE user_email = \$1`).
		WithArgs("a@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(ctx, "a@example.com")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSettingsCreateDefaults(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSettingsRepository(db)

	defaults := models.DefaultNotificationSettings("a@example.com")
	mock.ExpectQuery(`INSERT INTO creator.notification_settings .* ON CONFLICT \(user_email\)`).
		WithArgs("a@example.com", true, true, true, true, 7, 3).
		WillReturnRows(sqlmock.NewRows(settingsCols).
			AddRow("s-1", "a@example.com", true, true, true, true, 7, 3, created, created))

	s, err := repo.Create(ctx, defaults)
	require.NoError(t, err)
	assert.Equal(t, "s-1", s.ID)
	assert.Equal(t, 7, s.PaymentReminderDays)
	assert.Equal(t, 3, s.PublishReminderDays)
}

func TestSettingsUpdate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSettingsRepository(db)

	s := models.DefaultNotificationSettings("a@example.com")
	s.NotifyOverdue = false
	s.PaymentReminderDays = 14

	mock.ExpectQuery(`UPDATE creator.notification_settings`).
		WithArgs("a@example.com", true, true, true, false, 14, 3).
		WillReturnRows(sqlmock.NewRows(settingsCols).
			AddRow("s-1", "a@example.com", true, true, true, false, 14, 3, created, created))

	updated, err := repo.Update(ctx, s)
	require.NoError(t, err)
	assert.False(t, updated.NotifyOverdue)
	assert.Equal(t, 14, updated.PaymentReminderDays)
}
