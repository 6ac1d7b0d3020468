// Package queue delivers rendered campaign messages.
//
// AMQPDispatcher publishes each message as JSON to a durable RabbitMQ queue
// that the email and SMS senders consume. LogDispatcher is used when no broker
// is configured and only logs what would have been sent.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/forgo/staffhub/internal/model"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueueName is the outreach queue declared when none is configured
const DefaultQueueName = "staffhub.outreach"

const publishTimeout = 5 * time.Second

// ErrClosed is returned when publishing on a closed dispatcher
var ErrClosed = errors.New("dispatcher closed")

// Channel is the subset of *amqp.Channel used for publishing
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPDispatcher publishes outbound messages to RabbitMQ
type AMQPDispatcher struct {
	conn    *amqp.Connection
	channel Channel
	queue   string
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Config holds AMQP connection settings
type Config struct {
	URL    string
	Queue  string
	Logger *slog.Logger
}

// Dial connects to the broker and declares the durable outreach queue
func Dial(cfg Config) (*AMQPDispatcher, error) {
	name := cfg.Queue
	if name == "" {
		name = DefaultQueueName
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", name, err)
	}

	d := NewAMQPDispatcher(ch, name, cfg.Logger)
	d.conn = conn
	return d, nil
}

// NewAMQPDispatcher wraps an open channel
func NewAMQPDispatcher(ch Channel, queue string, logger *slog.Logger) *AMQPDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &AMQPDispatcher{channel: ch, queue: queue, logger: logger}
}

// Dispatch publishes msg as a persistent JSON message
func (d *AMQPDispatcher) Dispatch(ctx context.Context, msg *model.OutboundMessage) error {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return ErrClosed
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = d.channel.PublishWithContext(ctx, "", d.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.EnrollmentID + "#" + strconv.Itoa(msg.Step),
		Type:         string(msg.Channel),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", d.queue, err)
	}

	d.logger.Debug("outreach published",
		"enrollment_id", msg.EnrollmentID,
		"channel", msg.Channel,
		"step", msg.Step,
	)
	return nil
}

// Close closes the channel and connection
func (d *AMQPDispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	err := d.channel.Close()
	if d.conn != nil {
		err = errors.Join(err, d.conn.Close())
	}
	return err
}

// LogDispatcher logs messages instead of delivering them
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher creates a dispatcher that only logs
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

// Dispatch logs the message
func (d *LogDispatcher) Dispatch(ctx context.Context, msg *model.OutboundMessage) error {
	d.logger.Info("outreach (not delivered, no broker configured)",
		"enrollment_id", msg.EnrollmentID,
		"campaign_id", msg.CampaignID,
		"channel", msg.Channel,
		"to", msg.To,
		"step", msg.Step,
	)
	return nil
}

// Close is a no-op
func (d *LogDispatcher) Close() error { return nil }
