package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stanstork/sponsordesk-api/internal/config"
	"github.com/stanstork/sponsordesk-api/internal/models"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier mails high-priority notifications (imminent or overdue
// payments and publishes) to their owner.
type EmailNotifier struct {
	host     string
	port     int
	username string
	password string
	from     string
	send     sendMailFunc
	logger   zerolog.Logger
}

func NewEmailNotifier(cfg config.EmailConfig, logger zerolog.Logger) (*EmailNotifier, error) {
	host := strings.TrimSpace(cfg.SMTPHost)
	from := strings.TrimSpace(cfg.From)
	if host == "" {
		return nil, fmt.Errorf("smtp_host is required for email notifier")
	}
	if from == "" {
		return nil, fmt.Errorf("from is required for email notifier")
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}

	return &EmailNotifier{
		host:     host,
		port:     port,
		username: strings.TrimSpace(cfg.Username),
		password: cfg.Password,
		from:     from,
		send:     smtp.SendMail,
		logger:   logger.With().Str("notifier", "email").Logger(),
	}, nil
}

func (n *EmailNotifier) Notify(_ context.Context, notif models.Notification) error {
	if notif.Priority != models.PriorityHigh || strings.TrimSpace(notif.UserEmail) == "" {
		return nil
	}

	message := []byte(renderEmail(n.from, notif))
	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}

	if err := n.send(addr, auth, n.from, []string{notif.UserEmail}, message); err != nil {
		return err
	}

	n.logger.Info().
		Str("notification_id", notif.ID).
		Str("type", string(notif.Type)).
		Msg("email notification sent")
	return nil
}

func (n *EmailNotifier) String() string {
	return "email"
}

func renderEmail(from string, notif models.Notification) string {
	subject := fmt.Sprintf("[SponsorDesk] %s", strings.TrimSpace(notif.Title))
	if strings.TrimSpace(notif.Title) == "" {
		subject = "[SponsorDesk] Reminder"
	}

	body := strings.Builder{}
	body.WriteString(strings.TrimSpace(notif.Message))
	body.WriteString("\n\n")
	if notif.CampaignName != "" {
		body.WriteString(fmt.Sprintf("Campaign: %s\n", notif.CampaignName))
	}
	body.WriteString(fmt.Sprintf("Type: %s\n", notif.Type))
	body.WriteString(fmt.Sprintf("Created: %s\n", notif.CreatedAt.Format("2006-01-02 15:04 MST")))

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n",
		from, notif.UserEmail, subject)

	return headers + body.String()
}
