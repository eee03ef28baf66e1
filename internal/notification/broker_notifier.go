package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/stanstork/sponsordesk-api/internal/models"
	"github.com/streadway/amqp"
)

// brokerMessage is the payload published for every stored notification.
type brokerMessage struct {
	ID           string                      `json:"id"`
	UserEmail    string                      `json:"user_email"`
	Type         models.NotificationType     `json:"type"`
	Priority     models.NotificationPriority `json:"priority"`
	Title        string                      `json:"title"`
	Message      string                      `json:"message"`
	CampaignID   *string                     `json:"campaign_id,omitempty"`
	CampaignName string                      `json:"campaign_name,omitempty"`
	CreatedAt    time.Time                   `json:"created_at"`
}

func encodeBrokerMessage(n models.Notification) ([]byte, error) {
	return json.Marshal(brokerMessage{
		ID:           n.ID,
		UserEmail:    n.UserEmail,
		Type:         n.Type,
		Priority:     n.Priority,
		Title:        n.Title,
		Message:      n.Message,
		CampaignID:   n.CampaignID,
		CampaignName: n.CampaignName,
		CreatedAt:    n.CreatedAt,
	})
}

// AMQPNotifier publishes notifications to a fanout exchange.
type AMQPNotifier struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   zerolog.Logger
}

func NewAMQPNotifier(url, exchange string, logger zerolog.Logger) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to amqp broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeFanout,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &AMQPNotifier{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		logger:   logger.With().Str("notifier", "amqp").Logger(),
	}, nil
}

func (n *AMQPNotifier) String() string { return "amqp" }

func (n *AMQPNotifier) Notify(_ context.Context, notif models.Notification) error {
	body, err := encodeBrokerMessage(notif)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	return n.channel.Publish(
		n.exchange,
		string(notif.Type),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    notif.ID,
			Timestamp:    notif.CreatedAt,
			Body:         body,
		},
	)
}

func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.channel.Close(); err != nil {
		n.logger.Warn().Err(err).Msg("failed to close amqp channel")
	}
	return n.conn.Close()
}

// NATSNotifier publishes notifications on <subject>.<type>.
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
}

func NewNATSNotifier(url, subject string, logger zerolog.Logger) (*NATSNotifier, error) {
	log := logger.With().Str("notifier", "nats").Logger()
	nc, err := nats.Connect(url,
		nats.Name("sponsordesk-api"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSNotifier{conn: nc, subject: strings.TrimSuffix(subject, ".")}, nil
}

func (n *NATSNotifier) String() string { return "nats" }

func (n *NATSNotifier) Notify(_ context.Context, notif models.Notification) error {
	body, err := encodeBrokerMessage(notif)
	if err != nil {
		return err
	}
	return n.conn.Publish(natsSubject(n.subject, notif.Type), body)
}

func (n *NATSNotifier) Close() error {
	return n.conn.Drain()
}

func natsSubject(base string, typ models.NotificationType) string {
	return base + "." + string(typ)
}
