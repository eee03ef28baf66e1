package identity

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/stanstork/sponsordesk-api/internal/config"
)

// ConfirmationMailer delivers the sign-up confirmation link.
type ConfirmationMailer interface {
	SendConfirmation(recipientEmail, displayName, confirmURL string) error
}

// SMTPMailer sends confirmation emails using an SMTP server.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPMailer(cfg config.EmailConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return nil, fmt.Errorf("smtp_host is required")
	}
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 587
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("email from address is required")
	}

	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
	}, nil
}

func (m *SMTPMailer) SendConfirmation(recipientEmail, displayName, confirmURL string) error {
	message := []byte(confirmationMessage(m.from, recipientEmail, displayName, confirmURL))

	var auth smtp.Auth
	if strings.TrimSpace(m.username) != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	return smtp.SendMail(addr, auth, m.from, []string{recipientEmail}, message)
}

func confirmationMessage(from, to, displayName, confirmURL string) string {
	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n",
		from, to, "Confirm your SponsorDesk account")

	greeting := "Hello,"
	if name := strings.TrimSpace(displayName); name != "" {
		greeting = fmt.Sprintf("Hello %s,", name)
	}

	body := strings.Builder{}
	body.WriteString(greeting + "\n\n")
	body.WriteString("Thanks for signing up for SponsorDesk.\n")
	body.WriteString("Open the link below to confirm your email address and start tracking your campaigns:\n\n")
	body.WriteString(confirmURL + "\n\n")
	body.WriteString("If you did not create an account, you can ignore this email.\n")

	return headers + body.String()
}
