package notification

import (
	"context"
	"encoding/json"
	"net/smtp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stanstork/sponsordesk-api/internal/config"
	"github.com/stanstork/sponsordesk-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailNotifierOnlySendsHighPriority(t *testing.T) {
	n, err := NewEmailNotifier(config.EmailConfig{SMTPHost: "smtp.test", From: "noreply@sponsordesk.app"}, zerolog.Nop())
	require.NoError(t, err)

	var (
		sentTo  []string
		sentMsg string
		addr    string
	)
	n.send = func(a string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		addr = a
		sentTo = to
		sentMsg = string(msg)
		return nil
	}

	require.NoError(t, n.Notify(context.Background(), models.Notification{UserEmail: owner, Priority: models.PriorityMedium}))
	assert.Nil(t, sentTo)

	require.NoError(t, n.Notify(context.Background(), models.Notification{
		ID:           "n-1",
		UserEmail:    owner,
		Type:         models.NotificationOverdue,
		Priority:     models.PriorityHigh,
		Title:        "Payment overdue",
		Message:      "Payment from Acme is past its planned date",
		CampaignName: "Acme",
		CreatedAt:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}))
	assert.Equal(t, "smtp.test:587", addr)
	assert.Equal(t, []string{owner}, sentTo)
	assert.Contains(t, sentMsg, "Subject: [SponsorDesk] Payment overdue")
	assert.Contains(t, sentMsg, "Campaign: Acme")
}

func TestNewEmailNotifierRequiresHost(t *testing.T) {
	_, err := NewEmailNotifier(config.EmailConfig{From: "noreply@sponsordesk.app"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestBrokerMessageShape(t *testing.T) {
	cid := "c-1"
	body, err := encodeBrokerMessage(models.Notification{
		ID:         "n-1",
		UserEmail:  owner,
		Type:       models.NotificationPaymentDue,
		Priority:   models.PriorityHigh,
		CampaignID: &cid,
	})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "payment_due", decoded["type"])
	assert.Equal(t, "c-1", decoded["campaign_id"])
	assert.NotContains(t, decoded, "is_read")

	assert.Equal(t, "sponsordesk.notifications.payment_due", natsSubject("sponsordesk.notifications", models.NotificationPaymentDue))
}
