package notifications

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"socialgraph/internal/featureflags"
	"socialgraph/internal/models"
	"socialgraph/internal/observability"
)

// Dispatcher pushes committed notifications to their recipients' realtime
// streams. Delivery is best-effort and happens off the request path.
type Dispatcher struct {
	publisher Publisher
	flags     *featureflags.Manager
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. A nil publisher disables delivery.
func NewDispatcher(publisher Publisher, flags *featureflags.Manager) *Dispatcher {
	return &Dispatcher{publisher: publisher, flags: flags, timeout: 2 * time.Second}
}

// Deliver publishes a notification_created event to n's recipient when the
// realtime flag is on for them.
func (d *Dispatcher) Deliver(n *models.Notification) {
	if d == nil || d.publisher == nil || n == nil {
		return
	}
	if !d.flags.Enabled(featureflags.RealtimeNotifications, n.UserID) {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				observability.Logger.Error("panic in notification delivery",
					slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.publisher.PublishUser(ctx, n.UserID, NewEvent(EventNotificationCreated, notificationPayload(n))); err != nil {
			observability.Logger.WarnContext(ctx, "notification delivery failed",
				slog.String("notification_id", n.ID),
				slog.String("recipient_id", n.UserID),
				slog.String("error", err.Error()))
		}
	}()
}

// Wait blocks until in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	if d != nil {
		d.wg.Wait()
	}
}

func notificationPayload(n *models.Notification) map[string]interface{} {
	payload := map[string]interface{}{
		"id":         n.ID,
		"type":       string(n.Type),
		"user_id":    n.UserID,
		"creator_id": n.CreatorID,
		"created_at": n.CreatedAt,
	}
	if n.PostID != nil {
		payload["post_id"] = *n.PostID
	}
	if n.CommentID != nil {
		payload["comment_id"] = *n.CommentID
	}
	return payload
}
