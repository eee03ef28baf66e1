package derivation

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/sponsordesk-api/internal/authz"
	"github.com/stanstork/sponsordesk-api/internal/models"
	"github.com/stanstork/sponsordesk-api/internal/notification"
	"github.com/stanstork/sponsordesk-api/internal/repository"
)

// historySize is how many recent notifications are consulted for de-duplication.
const historySize = 100

// NotificationStore is what a scan needs from the notification service.
type NotificationStore interface {
	Settings(ctx context.Context, userEmail string) (models.NotificationSettings, error)
	ListRecent(ctx context.Context, userEmail string, limit int) ([]models.Notification, error)
	Publish(ctx context.Context, evt notification.Event) (models.Notification, error)
}

// CampaignLister loads an owner's campaigns.
type CampaignLister interface {
	List(ctx context.Context, userID string) ([]models.Campaign, error)
}

// ScanResult summarises one owner scan.
type ScanResult struct {
	Campaigns  int `json:"campaigns"`
	Candidates int `json:"candidates"`
	Created    int `json:"created"`
	Failed     int `json:"failed"`
}

type Engine struct {
	campaigns     CampaignLister
	notifications NotificationStore
	now           func() time.Time
	logger        zerolog.Logger
}

func NewEngine(campaigns CampaignLister, notifications NotificationStore, logger zerolog.Logger) *Engine {
	return &Engine{
		campaigns:     campaigns,
		notifications: notifications,
		now:           time.Now,
		logger:        logger.With().Str("component", "derivation_engine").Logger(),
	}
}

var _ CampaignLister = (repository.CampaignRepository)(nil)

// Scan derives and stores the notifications that are newly due for one owner.
// Inserts are independent: a failed insert is counted and the rest still run.
func (e *Engine) Scan(ctx context.Context, id authz.Identity) (ScanResult, error) {
	if !id.Valid() {
		return ScanResult{}, errors.New("scan requires an owner identity")
	}
	start := time.Now()
	defer func() { ScanDuration.Observe(time.Since(start).Seconds()) }()

	log := e.logger.With().Str("user_id", id.UserID).Logger()

	settings, err := e.notifications.Settings(ctx, id.Email)
	if err != nil {
		ScansTotal.WithLabelValues("error").Inc()
		return ScanResult{}, errors.Wrap(err, "load notification settings")
	}
	campaigns, err := e.campaigns.List(ctx, id.UserID)
	if err != nil {
		ScansTotal.WithLabelValues("error").Inc()
		return ScanResult{}, errors.Wrap(err, "load campaigns")
	}
	if len(campaigns) == 0 {
		ScansTotal.WithLabelValues("skipped").Inc()
		return ScanResult{}, nil
	}
	existing, err := e.notifications.ListRecent(ctx, id.Email, historySize)
	if err != nil {
		ScansTotal.WithLabelValues("error").Inc()
		return ScanResult{}, errors.Wrap(err, "load notification history")
	}

	candidates := Derive(e.now(), settings, campaigns, existing)
	result := ScanResult{Campaigns: len(campaigns), Candidates: len(candidates)}

	for _, c := range candidates {
		_, err := e.notifications.Publish(ctx, notification.Event{
			UserEmail:    id.Email,
			Type:         c.Type,
			Priority:     c.Priority,
			Title:        c.Title,
			Message:      c.Message,
			CampaignID:   c.CampaignID,
			CampaignName: c.CampaignName,
		})
		if err != nil {
			result.Failed++
			InsertFailures.Inc()
			log.Warn().Err(err).Str("campaign_id", c.CampaignID).Str("type", string(c.Type)).Msg("failed to insert derived notification")
			continue
		}
		result.Created++
		NotificationsCreated.WithLabelValues(string(c.Type)).Inc()
	}

	ScansTotal.WithLabelValues("success").Inc()
	if result.Created > 0 || result.Failed > 0 {
		log.Info().
			Int("campaigns", result.Campaigns).
			Int("created", result.Created).
			Int("failed", result.Failed).
			Msg("notification scan complete")
	}
	return result, nil
}
