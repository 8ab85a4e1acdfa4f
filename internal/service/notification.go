package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studisys/docshare-api/pkg/jobs"
)

// Notification is a fire-and-forget message to a user. Delivery is
// best-effort: failures are logged and never block the triggering operation.
type Notification struct {
	RecipientID string `json:"recipient_id"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

// NotificationDispatcher sends notifications. Implementations must not
// return delivery failures to the domain flow.
type NotificationDispatcher interface {
	Send(ctx context.Context, n Notification) error
}

// QueueDispatcher hands notifications to the background job queue so
// delivery happens off the request path.
type QueueDispatcher struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewQueueDispatcher constructs a dispatcher backed by the given queue.
func NewQueueDispatcher(queue *jobs.Queue, logger *zap.Logger) *QueueDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueDispatcher{queue: queue, logger: logger}
}

// Send enqueues the notification for asynchronous delivery.
func (d *QueueDispatcher) Send(ctx context.Context, n Notification) error {
	if d.queue == nil {
		return nil
	}
	return d.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "notification",
		Payload: n,
	})
}
