// Package events publishes domain events about ledger activity. Events are
// best effort: failures are logged and never fail the request that caused them.
package events

import (
	"context"       // Publish deadlines
	"encoding/json" // Event bodies
	"errors"        // Error joining
	"net/url"       // Broker URL parsing
	"strings"       // URL cleanup
	"sync"          // Channel and recorder locks
	"time"          // Event timestamps

	"github.com/google/uuid"              // Event IDs
	amqp "github.com/rabbitmq/amqp091-go" // RabbitMQ client
	"github.com/sirupsen/logrus"          // Logrus for structured logging
)

// Routing keys
const (
	UserRegistered       = "user.registered"
	OTPIssued            = "otp.issued"
	TransactionSimulated = "transaction.simulated"
	TransferCompleted    = "transfer.completed"
	GoalCompleted        = "goal.completed"
	RecurringExecuted    = "recurring.executed"
)

// Envelope wraps every published payload.
type Envelope struct {
	ID         string    `json:"id"`         // Unique per event, used for deduplication
	Type       string    `json:"type"`       // Routing key
	UserID     string    `json:"userId"`     // Affected user
	OccurredAt time.Time `json:"occurredAt"` // UTC time of the event
	Data       any       `json:"data"`       // Event specific payload
}

// Publisher sends domain events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, env Envelope) error
	Close() error
}

// Emit stamps and publishes an event, logging instead of returning failures.
func Emit(ctx context.Context, p Publisher, routingKey, userID string, data any) {
	if p == nil {
		return
	}
	env := Envelope{ID: uuid.NewString(), Type: routingKey, UserID: userID, OccurredAt: time.Now().UTC(), Data: data}
	if err := p.Publish(ctx, routingKey, env); err != nil {
		logrus.WithFields(logrus.Fields{
			"routing_key": routingKey,
			"user_id":     userID,
			"error":       err.Error(),
		}).Warn("Failed to publish event")
	}
}

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct {
	Logger *logrus.Logger // Defaults to the standard logger
}

func (p LogPublisher) Publish(_ context.Context, routingKey string, env Envelope) error {
	l := p.Logger
	if l == nil {
		l = logrus.StandardLogger()
	}
	l.WithFields(logrus.Fields{"routing_key": routingKey, "user_id": env.UserID}).Debug("Event")
	return nil
}

func (LogPublisher) Close() error { return nil }

// AMQPPublisher publishes JSON events to a durable topic exchange.
type AMQPPublisher struct {
	mu       sync.Mutex       // Serialises publishes on the channel
	conn     *amqp.Connection // Broker connection
	channel  *amqp.Channel    // Publishing channel
	exchange string           // Topic exchange name
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(amqpURL, exchange string) (*AMQPPublisher, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}
	conn, err := amqp.Dial(cleanURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.ID,
		Timestamp:    env.OccurredAt,
		Type:         env.Type,
		Body:         body,
	})
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []Envelope // Published events in order
}

func (r *Recorder) Publish(_ context.Context, _ string, env Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, env)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Types returns the event types recorded so far, in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}
