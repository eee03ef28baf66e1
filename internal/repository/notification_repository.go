package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/stanstork/sponsordesk-api/internal/apperr"
	"github.com/stanstork/sponsordesk-api/internal/models"
)

const (
	DefaultNotificationLimit = 50
	MaxNotificationLimit     = 100
)

type NotificationRepository interface {
	Create(ctx context.Context, params CreateNotificationParams) (models.Notification, error)
	ListRecent(ctx context.Context, userEmail string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userEmail, notificationID string) (models.Notification, error)
	CountUnread(ctx context.Context, userEmail string) (int, error)
	MarkAllRead(ctx context.Context, userEmail string) (int64, error)
	Delete(ctx context.Context, userEmail, notificationID string) error
}

type notificationRepository struct {
	db *sql.DB
}

type CreateNotificationParams struct {
	UserEmail    string
	Type         models.NotificationType
	Priority     models.NotificationPriority
	Title        string
	Message      string
	CampaignID   *string
	CampaignName string
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, params CreateNotificationParams) (models.Notification, error) {
	const query = `
		INSERT INTO creator.notifications (user_email, type, title, message, campaign_id, campaign_name, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, user_email, type, title, message, campaign_id, campaign_name, priority, is_read, created_at
	`

	var campaignID interface{}
	if params.CampaignID != nil && strings.TrimSpace(*params.CampaignID) != "" {
		campaignID = strings.TrimSpace(*params.CampaignID)
	}

	row := r.db.QueryRowContext(ctx, query,
		strings.TrimSpace(params.UserEmail),
		params.Type,
		params.Title,
		params.Message,
		campaignID,
		params.CampaignName,
		params.Priority,
	)
	notif, err := scanNotification(row)
	return notif, apperr.Store("notifications.create", err)
}

func (r *notificationRepository) ListRecent(ctx context.Context, userEmail string, limit int) ([]models.Notification, error) {
	switch {
	case limit <= 0:
		limit = DefaultNotificationLimit
	case limit > MaxNotificationLimit:
		limit = MaxNotificationLimit
	}

	const query = `
		SELECT id, user_email, type, title, message, campaign_id, campaign_name, priority, is_read, created_at
		FROM creator.notifications
		WHERE user_email = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, strings.TrimSpace(userEmail), limit)
	if err != nil {
		return nil, apperr.Store("notifications.list", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			return nil, apperr.Store("notifications.list", err)
		}
		notifications = append(notifications, notif)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("notifications.list", err)
	}
	return notifications, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, userEmail, notificationID string) (models.Notification, error) {
	const query = `
		UPDATE creator.notifications
		SET is_read = TRUE
		WHERE id = $1 AND user_email = $2
		RETURNING id, user_email, type, title, message, campaign_id, campaign_name, priority, is_read, created_at
	`
	row := r.db.QueryRowContext(ctx, query, strings.TrimSpace(notificationID), strings.TrimSpace(userEmail))
	notif, err := scanNotification(row)
	if isMissing(err) {
		return models.Notification{}, apperr.ErrNotFound
	}
	return notif, apperr.Store("notifications.mark_read", err)
}

func (r *notificationRepository) CountUnread(ctx context.Context, userEmail string) (int, error) {
	const query = `SELECT COUNT(*) FROM creator.notifications WHERE user_email = $1 AND is_read = FALSE`

	var count int
	err := r.db.QueryRowContext(ctx, query, strings.TrimSpace(userEmail)).Scan(&count)
	return count, apperr.Store("notifications.count_unread", err)
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userEmail string) (int64, error) {
	const query = `
		UPDATE creator.notifications
		SET is_read = TRUE
		WHERE user_email = $1 AND is_read = FALSE
	`
	result, err := r.db.ExecContext(ctx, query, strings.TrimSpace(userEmail))
	if err != nil {
		return 0, apperr.Store("notifications.mark_all_read", err)
	}
	affected, err := result.RowsAffected()
	return affected, apperr.Store("notifications.mark_all_read", err)
}

func (r *notificationRepository) Delete(ctx context.Context, userEmail, notificationID string) error {
	const query = `DELETE FROM creator.notifications WHERE id = $1 AND user_email = $2`

	result, err := r.db.ExecContext(ctx, query, strings.TrimSpace(notificationID), strings.TrimSpace(userEmail))
	if isMissing(err) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return apperr.Store("notifications.delete", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperr.Store("notifications.delete", err)
	}
	if affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func scanNotification(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Notification, error) {
	var (
		notif        models.Notification
		campaignID   sql.NullString
		campaignName sql.NullString
	)

	if err := scanner.Scan(
		&notif.ID,
		&notif.UserEmail,
		&notif.Type,
		&notif.Title,
		&notif.Message,
		&campaignID,
		&campaignName,
		&notif.Priority,
		&notif.IsRead,
		&notif.CreatedAt,
	); err != nil {
		return models.Notification{}, err
	}

	if campaignID.Valid {
		val := campaignID.String
		notif.CampaignID = &val
	}
	notif.CampaignName = campaignName.String

	return notif, nil
}
