package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/sponsordesk-api/internal/apperr"
	"github.com/stanstork/sponsordesk-api/internal/models"
	"github.com/stanstork/sponsordesk-api/internal/repository"
)

// MaxReminderDays bounds both reminder thresholds.
const MaxReminderDays = 90

// Event is a notification about to be stored for one owner.
type Event struct {
	UserEmail    string
	Type         models.NotificationType
	Priority     models.NotificationPriority
	Title        string
	Message      string
	CampaignID   string
	CampaignName string
}

// SettingsUpdate is a partial settings change; nil fields are kept.
type SettingsUpdate struct {
	NotifyPaymentsDue   *bool `json:"notify_payments_due"`
	NotifyPublishDue    *bool `json:"notify_publish_due"`
	NotifyStatusChanges *bool `json:"notify_status_changes"`
	NotifyOverdue       *bool `json:"notify_overdue"`
	PaymentReminderDays *int  `json:"payment_reminder_days"`
	PublishReminderDays *int  `json:"publish_reminder_days"`
}

type Service interface {
	Publish(ctx context.Context, evt Event) (models.Notification, error)
	ListRecent(ctx context.Context, userEmail string, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userEmail string) (int, error)
	MarkRead(ctx context.Context, userEmail, notificationID string) (models.Notification, error)
	MarkAllRead(ctx context.Context, userEmail string) (int64, error)
	Delete(ctx context.Context, userEmail, notificationID string) error
	Settings(ctx context.Context, userEmail string) (models.NotificationSettings, error)
	UpdateSettings(ctx context.Context, userEmail string, update SettingsUpdate) (models.NotificationSettings, error)
}

type service struct {
	repo      repository.NotificationRepository
	settings  repository.SettingsRepository
	logger    zerolog.Logger
	notifiers []Notifier
}

func NewService(repo repository.NotificationRepository, settings repository.SettingsRepository, logger zerolog.Logger, notifiers ...Notifier) Service {
	active := make([]Notifier, 0, len(notifiers))
	for _, notifier := range notifiers {
		if notifier != nil {
			active = append(active, notifier)
		}
	}
	return &service{
		repo:      repo,
		settings:  settings,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		notifiers: active,
	}
}

func (s *service) Publish(ctx context.Context, evt Event) (models.Notification, error) {
	email := strings.TrimSpace(evt.UserEmail)
	if email == "" {
		return models.Notification{}, fmt.Errorf("owner email is required")
	}
	if evt.Type == "" {
		return models.Notification{}, fmt.Errorf("notification type is required")
	}
	if evt.Priority == "" {
		evt.Priority = models.PriorityMedium
	}
	title := strings.TrimSpace(evt.Title)
	if title == "" {
		title = string(evt.Type)
	}

	params := repository.CreateNotificationParams{
		UserEmail:    email,
		Type:         evt.Type,
		Priority:     evt.Priority,
		Title:        title,
		Message:      strings.TrimSpace(evt.Message),
		CampaignName: strings.TrimSpace(evt.CampaignName),
	}
	if cid := strings.TrimSpace(evt.CampaignID); cid != "" {
		params.CampaignID = &cid
	}

	notif, err := s.repo.Create(ctx, params)
	if err != nil {
		s.logger.Error().Err(err).Str("type", string(evt.Type)).Msg("failed to persist notification")
		return models.Notification{}, err
	}
	for _, notifier := range s.notifiers {
		if err := notifier.Notify(ctx, notif); err != nil {
			logNotifyError(s.logger, err, notifierChannelName(notifier), notif)
		}
	}
	return notif, nil
}

func (s *service) ListRecent(ctx context.Context, userEmail string, limit int) ([]models.Notification, error) {
	return s.repo.ListRecent(ctx, userEmail, limit)
}

func (s *service) UnreadCount(ctx context.Context, userEmail string) (int, error) {
	return s.repo.CountUnread(ctx, userEmail)
}

func (s *service) MarkRead(ctx context.Context, userEmail, notificationID string) (models.Notification, error) {
	notif, err := s.repo.MarkRead(ctx, userEmail, notificationID)
	if err != nil {
		return models.Notification{}, err
	}
	s.broadcast(userEmail, ChangeEvent{Event: ChangeUpdate, ID: notif.ID})
	return notif, nil
}

func (s *service) MarkAllRead(ctx context.Context, userEmail string) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userEmail)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.broadcast(userEmail, ChangeEvent{Event: ChangeUpdate})
	}
	return n, nil
}

func (s *service) Delete(ctx context.Context, userEmail, notificationID string) error {
	if err := s.repo.Delete(ctx, userEmail, notificationID); err != nil {
		return err
	}
	s.broadcast(userEmail, ChangeEvent{Event: ChangeDelete, ID: notificationID})
	return nil
}

// Settings returns the owner's settings, storing the defaults on first access.
func (s *service) Settings(ctx context.Context, userEmail string) (models.NotificationSettings, error) {
	settings, err := s.settings.Get(ctx, userEmail)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return models.NotificationSettings{}, err
	}

	created, err := s.settings.Create(ctx, models.DefaultNotificationSettings(strings.TrimSpace(userEmail)))
	if err != nil {
		return models.NotificationSettings{}, err
	}
	s.logger.Debug().Str("user_email", created.UserEmail).Msg("created default notification settings")
	return created, nil
}

func (s *service) UpdateSettings(ctx context.Context, userEmail string, update SettingsUpdate) (models.NotificationSettings, error) {
	current, err := s.Settings(ctx, userEmail)
	if err != nil {
		return models.NotificationSettings{}, err
	}

	if update.NotifyPaymentsDue != nil {
		current.NotifyPaymentsDue = *update.NotifyPaymentsDue
	}
	if update.NotifyPublishDue != nil {
		current.NotifyPublishDue = *update.NotifyPublishDue
	}
	if update.NotifyStatusChanges != nil {
		current.NotifyStatusChanges = *update.NotifyStatusChanges
	}
	if update.NotifyOverdue != nil {
		current.NotifyOverdue = *update.NotifyOverdue
	}
	if update.PaymentReminderDays != nil {
		if err := validateReminderDays("payment_reminder_days", *update.PaymentReminderDays); err != nil {
			return models.NotificationSettings{}, err
		}
		current.PaymentReminderDays = *update.PaymentReminderDays
	}
	if update.PublishReminderDays != nil {
		if err := validateReminderDays("publish_reminder_days", *update.PublishReminderDays); err != nil {
			return models.NotificationSettings{}, err
		}
		current.PublishReminderDays = *update.PublishReminderDays
	}

	return s.settings.Update(ctx, current)
}

func validateReminderDays(field string, days int) error {
	if days < 0 || days > MaxReminderDays {
		return apperr.Invalid(field, "must be between 0 and %d", MaxReminderDays)
	}
	return nil
}

func (s *service) broadcast(userEmail string, evt ChangeEvent) {
	for _, notifier := range s.notifiers {
		if listener, ok := notifier.(ChangeListener); ok {
			listener.Changed(strings.TrimSpace(userEmail), evt)
		}
	}
}

func notifierChannelName(n Notifier) string {
	type named interface {
		String() string
	}
	if v, ok := n.(named); ok {
		return v.String()
	}
	return fmt.Sprintf("%T", n)
}
