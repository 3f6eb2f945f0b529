package otp

import (
	"context"
	"database/sql"

	"storefront-be/internal/events"
)

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type outboxNotifier struct {
	conn   *sql.DB
	outbox events.Outbox
}

// NewOutboxNotifier queues codes on the notification.otp topic; the relay
// forwards them to the broker.
func NewOutboxNotifier(conn *sql.DB, outbox events.Outbox) Notifier {
	return &outboxNotifier{conn: conn, outbox: outbox}
}

func (n *outboxNotifier) Notify(ctx context.Context, msg Notification) error {
	return n.outbox.Insert(ctx, n.conn, events.TopicNotificationOTP, msg.Identity, msg)
}
