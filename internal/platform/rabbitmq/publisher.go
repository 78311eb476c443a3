package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-planner/internal/platform/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the topic exchange notifications are published to.
const DefaultExchange = "scry.notifications"

// ErrPublishFailed is returned when the broker rejects or cannot take a message.
var ErrPublishFailed = errors.New("failed to publish message")

// Channel is the subset of *amqp.Channel used by the Publisher.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher publishes JSON messages to a durable topic exchange.
type Publisher struct {
	ch       Channel
	conn     *amqp.Connection
	exchange string
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// Dial connects to url, opens a channel and declares the exchange.
func Dial(url, exchange string, log *slog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	p, err := NewPublisher(ch, exchange, log)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewPublisher declares exchange on ch and returns a Publisher using it.
// An empty exchange name selects DefaultExchange.
func NewPublisher(ch Channel, exchange string, log *slog.Logger) (*Publisher, error) {
	if ch == nil {
		return nil, errors.New("channel cannot be nil")
	}
	if exchange == "" {
		exchange = DefaultExchange
	}
	if log == nil {
		log = slog.Default()
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %q: %w", exchange, err)
	}

	return &Publisher{
		ch:       ch,
		exchange: exchange,
		logger:   log.With(slog.String("component", "rabbitmq_publisher")),
		now:      time.Now,
		newID:    uuid.NewString,
	}, nil
}

// Publish encodes body as JSON and publishes it as a persistent message.
// It returns the generated message ID.
func (p *Publisher) Publish(ctx context.Context, routingKey string, body any) (string, error) {
	log := logger.FromContextOrDefault(ctx, p.logger)

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s message: %w", routingKey, err)
	}

	id := p.newID()
	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    id,
		Timestamp:    p.now().UTC(),
		Body:         data,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrPublishFailed, routingKey, err)
	}

	log.Debug("message published",
		slog.String("exchange", p.exchange),
		slog.String("routing_key", routingKey),
		slog.String("message_id", id))
	return id, nil
}

// Close closes the channel and, when the Publisher owns it, the connection.
func (p *Publisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}
