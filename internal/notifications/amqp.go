package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"socialgraph/internal/observability"

	amqp "github.com/rabbitmq/amqp091-go"
)

// SocialExchange is the topic exchange notification events are published to.
const SocialExchange = "social_events"

// AMQPPublisher publishes events to a RabbitMQ topic exchange with routing
// keys user.<id> and broadcast.
type AMQPPublisher struct {
	conn *amqp.Connection
	mu   sync.Mutex
	ch   *amqp.Channel
}

// NewAMQPPublisher dials url and declares the durable topic exchange.
func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		SocialExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch}, nil
}

// UserRoutingKey derives the routing key for a user's events.
func UserRoutingKey(userID string) string {
	return "user." + userID
}

func (p *AMQPPublisher) PublishUser(ctx context.Context, userID string, event Event) error {
	return p.publish(ctx, UserRoutingKey(userID), event)
}

func (p *AMQPPublisher) PublishBroadcast(ctx context.Context, event Event) error {
	return p.publish(ctx, "broadcast", event)
}

func (p *AMQPPublisher) publish(ctx context.Context, routingKey string, event Event) error {
	body, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return errors.New("RabbitMQ channel not initialized")
	}
	err = p.ch.PublishWithContext(ctx,
		SocialExchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Type:        event.Type,
			Timestamp:   event.Timestamp,
			Body:        body,
		},
	)
	if err != nil {
		observability.EventPublishErrors.WithLabelValues("amqp").Inc()
	}
	return err
}

// SubscribeUser consumes events addressed to userID, plus broadcasts, through
// an exclusive queue that lives as long as ctx.
func (p *AMQPPublisher) SubscribeUser(ctx context.Context, userID string, onMessage func(payload string)) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	for _, key := range []string{UserRoutingKey(userID), "broadcast"} {
		if err := ch.QueueBind(q.Name, key, SocialExchange, false, nil); err != nil {
			_ = ch.Close()
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	deliveries, err := ch.ConsumeWithContext(ctx, q.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to consume: %w", err)
	}

	go func() {
		defer func() { _ = ch.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.Logger.Error("panic in notification subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(string(d.Body))
				}()
			}
		}
	}()
	return nil
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	return p.conn.Close()
}
