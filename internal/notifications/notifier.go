package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"socialgraph/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix = "notifications:user:"
	broadcastChannel  = "notifications:broadcast"
)

// Notifier publishes events into Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID string) string {
	return userChannelPrefix + userID
}

// PublishUser sends an event to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID string, event Event) error {
	return n.publish(ctx, UserChannel(userID), event)
}

// PublishBroadcast sends an event to all connected users.
func (n *Notifier) PublishBroadcast(ctx context.Context, event Event) error {
	return n.publish(ctx, broadcastChannel, event)
}

func (n *Notifier) publish(ctx context.Context, channel string, event Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	if err := n.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		observability.EventPublishErrors.WithLabelValues("redis").Inc()
		return err
	}
	return nil
}

// SubscribeUser streams raw event payloads addressed to userID, plus
// broadcasts, until ctx is cancelled. onMessage panics are recovered.
func (n *Notifier) SubscribeUser(ctx context.Context, userID string, onMessage func(payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, UserChannel(userID), broadcastChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", UserChannel(userID), err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
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
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
