package models

import (
	"time"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
)

type NotificationType string

const (
	NotificationPaymentDue   NotificationType = "payment_due"
	NotificationPublishDue   NotificationType = "publish_due"
	NotificationStatusChange NotificationType = "status_change"
	NotificationOverdue      NotificationType = "overdue"
	NotificationMilestone    NotificationType = "milestone"
)

type Notification struct {
	ID           string               `json:"id" db:"id"`
	UserEmail    string               `json:"user_email" db:"user_email"`
	Type         NotificationType     `json:"type" db:"type"`
	Title        string               `json:"title" db:"title"`
	Message      string               `json:"message" db:"message"`
	CampaignID   *string              `json:"campaign_id,omitempty" db:"campaign_id"`
	CampaignName string               `json:"campaign_name,omitempty" db:"campaign_name"`
	Priority     NotificationPriority `json:"priority" db:"priority"`
	IsRead       bool                 `json:"is_read" db:"is_read"`
	CreatedAt    time.Time            `json:"created_at" db:"created_at"`
}

// ForCampaign reports whether the notification references the given campaign.
func (n Notification) ForCampaign(campaignID string) bool {
	return n.CampaignID != nil && *n.CampaignID == campaignID
}

// NotificationSettings is the per-user reminder configuration.
type NotificationSettings struct {
	ID                  string    `json:"id" db:"id"`
	UserEmail           string    `json:"user_email" db:"user_email"`
	NotifyPaymentsDue   bool      `json:"notify_payments_due" db:"notify_payments_due"`
	NotifyPublishDue    bool      `json:"notify_publish_due" db:"notify_publish_due"`
	NotifyStatusChanges bool      `json:"notify_status_changes" db:"notify_status_changes"`
	NotifyOverdue       bool      `json:"notify_overdue" db:"notify_overdue"`
	PaymentReminderDays int       `json:"payment_reminder_days" db:"payment_reminder_days"`
	PublishReminderDays int       `json:"publish_reminder_days" db:"publish_reminder_days"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultNotificationSettings are stored the first time a user's settings are read.
func DefaultNotificationSettings(email string) NotificationSettings {
	return NotificationSettings{
		UserEmail:           email,
		NotifyPaymentsDue:   true,
		NotifyPublishDue:    true,
		NotifyStatusChanges: true,
		NotifyOverdue:       true,
		PaymentReminderDays: 7,
		PublishReminderDays: 3,
	}
}
