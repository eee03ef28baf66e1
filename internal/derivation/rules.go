package derivation

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stanstork/sponsordesk-api/internal/models"
)

// DedupWindow is how long a campaign's notification suppresses reminders
// while its status is unchanged.
const DedupWindow = 7 * 24 * time.Hour

// MilestoneMarker appears in every milestone message and identifies prior
// milestones for a campaign.
const MilestoneMarker = "has been completed"

// Candidate is a notification the rules decided is due.
type Candidate struct {
	Type         models.NotificationType
	Priority     models.NotificationPriority
	Title        string
	Message      string
	CampaignID   string
	CampaignName string
}

// Derive evaluates every campaign against the reminder, overdue and milestone
// rules. It performs no I/O; existing is the owner's recent notification history.
func Derive(now time.Time, settings models.NotificationSettings, campaigns []models.Campaign, existing []models.Notification) []Candidate {
	today := civil.DateOf(now)
	var out []Candidate

	for _, c := range campaigns {
		if !recentlyNotified(c, existing, now) {
			out = append(out, paymentDue(c, settings, today)...)
			out = append(out, publishDue(c, settings, today)...)
			out = append(out, overdue(c, settings, today)...)
		}
		out = append(out, milestone(c, existing)...)
	}
	return out
}

// recentlyNotified is the coarse de-duplication check: any notification for
// the campaign created inside the window whose message mentions the current status.
func recentlyNotified(c models.Campaign, existing []models.Notification, now time.Time) bool {
	status := string(c.Status)
	for _, n := range existing {
		if !n.ForCampaign(c.ID) {
			continue
		}
		if strings.Contains(n.Message, status) && now.Sub(n.CreatedAt) < DedupWindow {
			return true
		}
	}
	return false
}

func paymentDue(c models.Campaign, settings models.NotificationSettings, today civil.Date) []Candidate {
	if !settings.NotifyPaymentsDue || c.PlannedPaymentDate == nil || c.IsPaid {
		return nil
	}
	days := c.PlannedPaymentDate.DaysSince(today)
	if days < 0 || days > settings.PaymentReminderDays {
		return nil
	}
	priority := models.PriorityMedium
	if days <= 2 {
		priority = models.PriorityHigh
	}
	return []Candidate{newCandidate(c, models.NotificationPaymentDue, priority,
		"Payment approaching",
		fmt.Sprintf("Payment from %s is expected in %s (status: %s)", c.BrandName, inDays(days), c.Status))}
}

func publishDue(c models.Campaign, settings models.NotificationSettings, today civil.Date) []Candidate {
	if !settings.NotifyPublishDue || c.PlannedPublishDate == nil || c.Status == models.StatusPublished {
		return nil
	}
	days := c.PlannedPublishDate.DaysSince(today)
	if days < 0 || days > settings.PublishReminderDays {
		return nil
	}
	priority := models.PriorityMedium
	if days <= 1 {
		priority = models.PriorityHigh
	}
	return []Candidate{newCandidate(c, models.NotificationPublishDue, priority,
		"Publishing approaching",
		fmt.Sprintf("%s is scheduled to publish in %s (status: %s)", c.BrandName, inDays(days), c.Status))}
}

// overdue can fire twice for one campaign: once for payment, once for publishing.
func overdue(c models.Campaign, settings models.NotificationSettings, today civil.Date) []Candidate {
	if !settings.NotifyOverdue {
		return nil
	}
	var out []Candidate
	if c.PlannedPaymentDate != nil && !c.IsPaid && c.PlannedPaymentDate.Before(today) {
		out = append(out, newCandidate(c, models.NotificationOverdue, models.PriorityHigh,
			"Payment overdue",
			fmt.Sprintf("Payment from %s is past its planned date (status: %s)", c.BrandName, c.Status)))
	}
	if c.PlannedPublishDate != nil && c.Status != models.StatusPublished && c.PlannedPublishDate.Before(today) {
		out = append(out, newCandidate(c, models.NotificationOverdue, models.PriorityHigh,
			"Publishing overdue",
			fmt.Sprintf("%s missed its planned publish date (status: %s)", c.BrandName, c.Status)))
	}
	return out
}

func milestone(c models.Campaign, existing []models.Notification) []Candidate {
	if !c.AllContentCompleted() {
		return nil
	}
	for _, n := range existing {
		if n.ForCampaign(c.ID) && n.Type == models.NotificationMilestone && strings.Contains(n.Message, MilestoneMarker) {
			return nil
		}
	}
	return []Candidate{newCandidate(c, models.NotificationMilestone, models.PriorityLow,
		"Campaign completed!",
		fmt.Sprintf("All content for %s %s", c.BrandName, MilestoneMarker))}
}

func newCandidate(c models.Campaign, typ models.NotificationType, priority models.NotificationPriority, title, message string) Candidate {
	return Candidate{
		Type:         typ,
		Priority:     priority,
		Title:        title,
		Message:      message,
		CampaignID:   c.ID,
		CampaignName: c.BrandName,
	}
}

func inDays(days int) string {
	switch days {
	case 0:
		return "0 days (today)"
	case 1:
		return "1 day"
	default:
		return fmt.Sprintf("%d days", days)
	}
}
