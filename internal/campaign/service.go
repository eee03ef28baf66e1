package campaign

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/sponsordesk-api/internal/apperr"
	"github.com/stanstork/sponsordesk-api/internal/authz"
	"github.com/stanstork/sponsordesk-api/internal/models"
	"github.com/stanstork/sponsordesk-api/internal/notification"
	"github.com/stanstork/sponsordesk-api/internal/repository"
)

// StatusNotifier is the part of the notification service the status-change hook needs.
type StatusNotifier interface {
	Settings(ctx context.Context, userEmail string) (models.NotificationSettings, error)
	Publish(ctx context.Context, evt notification.Event) (models.Notification, error)
}

type Service struct {
	repo     repository.CampaignRepository
	notifier StatusNotifier
	now      func() time.Time
	logger   zerolog.Logger
}

func NewService(repo repository.CampaignRepository, notifier StatusNotifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		now:      time.Now,
		logger:   logger.With().Str("component", "campaign_service").Logger(),
	}
}

func (s *Service) today() civil.Date {
	return civil.DateOf(s.now())
}

// List returns the owner's campaigns, newest first, narrowed by the filter.
func (s *Service) List(ctx context.Context, id authz.Identity, filter models.CampaignFilter) ([]models.Campaign, error) {
	all, err := s.repo.List(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Campaign, 0, len(all))
	for _, c := range all {
		if filter.Matches(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id authz.Identity, campaignID string) (models.Campaign, error) {
	return s.repo.Get(ctx, id.UserID, strings.TrimSpace(campaignID))
}

func (s *Service) Create(ctx context.Context, id authz.Identity, in Input) (models.Campaign, error) {
	if err := in.Validate(true); err != nil {
		return models.Campaign{}, err
	}

	c := in.newCampaign(id.UserID)
	if !in.PlannedPaymentDate.Set && c.PlannedPublishDate != nil {
		due := models.DefaultPaymentDate(*c.PlannedPublishDate, c.PaymentTerms)
		c.PlannedPaymentDate = &due
	}
	if c.Status == models.StatusPublished && c.ActualPublishDate == nil {
		today := s.today()
		c.ActualPublishDate = &today
	}

	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return models.Campaign{}, err
	}
	s.logger.Info().Str("campaign_id", created.ID).Str("user_id", id.UserID).Msg("campaign created")
	return created, nil
}

// Update applies a partial edit. A changed publish date or payment terms
// re-derives the planned payment date unless one is supplied.
func (s *Service) Update(ctx context.Context, id authz.Identity, campaignID string, in Input) (models.Campaign, error) {
	if err := in.Validate(false); err != nil {
		return models.Campaign{}, err
	}

	existing, err := s.repo.Get(ctx, id.UserID, campaignID)
	if err != nil {
		return models.Campaign{}, err
	}

	params := in.updateParams()
	if (in.PlannedPublishDate.Set || in.PaymentTerms != nil) && !in.PlannedPaymentDate.Set {
		publish := in.PlannedPublishDate.Or(existing.PlannedPublishDate)
		terms := existing.PaymentTerms
		if in.PaymentTerms != nil {
			terms = *in.PaymentTerms
		}
		if publish != nil {
			params.PlannedPaymentDate = models.SetDate(models.DefaultPaymentDate(*publish, terms))
		}
	}
	if in.Status != nil {
		s.stampPublished(&params, existing, *in.Status, in.ActualPublishDate.Set)
	}

	updated, err := s.repo.Update(ctx, id.UserID, campaignID, params)
	if err != nil {
		return models.Campaign{}, err
	}
	s.statusChanged(ctx, id, existing, updated)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id authz.Identity, campaignID string) error {
	if err := s.repo.Delete(ctx, id.UserID, campaignID); err != nil {
		return err
	}
	s.logger.Info().Str("campaign_id", campaignID).Str("user_id", id.UserID).Msg("campaign deleted")
	return nil
}

// SetStatus moves a campaign to any status. The first move to published
// stamps the actual publish date.
func (s *Service) SetStatus(ctx context.Context, id authz.Identity, campaignID string, status models.CampaignStatus) (models.Campaign, error) {
	if !models.IsValidStatus(status) {
		return models.Campaign{}, apperr.Invalid("status", "unknown status %q", status)
	}
	existing, err := s.repo.Get(ctx, id.UserID, campaignID)
	if err != nil {
		return models.Campaign{}, err
	}

	params := repository.UpdateCampaignParams{Status: &status}
	s.stampPublished(&params, existing, status, false)

	updated, err := s.repo.Update(ctx, id.UserID, campaignID, params)
	if err != nil {
		return models.Campaign{}, err
	}
	s.statusChanged(ctx, id, existing, updated)
	return updated, nil
}

// MarkPaid sets is_paid, paid_date and the paid status together.
func (s *Service) MarkPaid(ctx context.Context, id authz.Identity, campaignID string) (models.Campaign, error) {
	existing, err := s.repo.Get(ctx, id.UserID, campaignID)
	if err != nil {
		return models.Campaign{}, err
	}

	paid := true
	status := models.StatusPaid
	updated, err := s.repo.Update(ctx, id.UserID, campaignID, repository.UpdateCampaignParams{
		IsPaid:   &paid,
		PaidDate: models.SetDate(s.today()),
		Status:   &status,
	})
	if err != nil {
		return models.Campaign{}, err
	}
	s.statusChanged(ctx, id, existing, updated)
	return updated, nil
}

// ToggleContentItem advances one deliverable's completed count, wrapping to zero.
func (s *Service) ToggleContentItem(ctx context.Context, id authz.Identity, campaignID string, index int) (models.Campaign, error) {
	existing, err := s.repo.Get(ctx, id.UserID, campaignID)
	if err != nil {
		return models.Campaign{}, err
	}
	if index < 0 || index >= len(existing.ContentItems) {
		return models.Campaign{}, apperr.Invalid("index", "content item %d does not exist", index)
	}

	items := append([]models.ContentItem(nil), existing.ContentItems...)
	items[index] = items[index].Toggle()
	return s.repo.Update(ctx, id.UserID, campaignID, repository.UpdateCampaignParams{ContentItems: &items})
}

func (s *Service) UpdatePublishedLink(ctx context.Context, id authz.Identity, campaignID, link string) (models.Campaign, error) {
	link = strings.TrimSpace(link)
	return s.repo.Update(ctx, id.UserID, campaignID, repository.UpdateCampaignParams{PublishedLink: &link})
}

func (s *Service) stampPublished(params *repository.UpdateCampaignParams, existing models.Campaign, status models.CampaignStatus, explicit bool) {
	if status != models.StatusPublished || existing.ActualPublishDate != nil || explicit {
		return
	}
	params.ActualPublishDate = models.SetDate(s.today())
}

// statusChanged publishes a status_change notification when the owner wants
// them. The mutation has already succeeded, so failures are only logged.
func (s *Service) statusChanged(ctx context.Context, id authz.Identity, before, after models.Campaign) {
	if s.notifier == nil || before.Status == after.Status {
		return
	}
	log := s.logger.With().Str("campaign_id", after.ID).Str("status", string(after.Status)).Logger()

	settings, err := s.notifier.Settings(ctx, id.Email)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load notification settings for status change")
		return
	}
	if !settings.NotifyStatusChanges {
		return
	}

	_, err = s.notifier.Publish(ctx, notification.Event{
		UserEmail:    id.Email,
		Type:         models.NotificationStatusChange,
		Priority:     models.PriorityLow,
		Title:        "Campaign status updated",
		Message:      StatusChangeMessage(after.BrandName, after.Status),
		CampaignID:   after.ID,
		CampaignName: after.BrandName,
	})
	if err != nil {
		log.Warn().Err(errors.Wrap(err, "publish status change")).Msg("status change notification not stored")
	}
}

// StatusChangeMessage contains the new status verbatim, which the reminder
// de-duplication relies on.
func StatusChangeMessage(brand string, status models.CampaignStatus) string {
	return fmt.Sprintf("%s moved to %s", brand, status)
}
