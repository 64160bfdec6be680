package handlers

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greencoach/greencoach-service/internal/events"
	"github.com/greencoach/greencoach-service/internal/logging"
	"github.com/greencoach/greencoach-service/internal/models"
	"github.com/greencoach/greencoach-service/internal/repository"
)

// Notifier stores community notifications and publishes them as events.
// Neither step fails the request that triggered it.
type Notifier struct {
	store     repository.NotificationRepository
	publisher events.Publisher
}

// NewNotifier creates a notifier. A nil publisher drops events.
func NewNotifier(store repository.NotificationRepository, publisher events.Publisher) *Notifier {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Notifier{store: store, publisher: publisher}
}

// Notify stores the notification and publishes it. Self-notifications are dropped.
func (n *Notifier) Notify(ctx context.Context, notification *models.Notification) {
	if n == nil || notification.RecipientID == uuid.Nil || notification.ActorID == notification.RecipientID.String() {
		return
	}

	logger := logging.FromStdContext(ctx)
	if err := n.store.Add(ctx, notification); err != nil {
		logger.Warn("failed to store notification",
			zap.String("type", string(notification.Type)),
			zap.Error(err),
		)
		return
	}

	if err := n.publisher.Publish(ctx, events.FromNotification(notification)); err != nil {
		logger.Warn("failed to publish community event",
			zap.Int64("notification_id", notification.ID),
			zap.Error(err),
		)
	}
}

// notifyOwner fills in the recipient from an optional owner ID
func (n *Notifier) notifyOwner(ctx context.Context, owner *uuid.UUID, notification *models.Notification) {
	if owner == nil {
		return
	}
	notification.RecipientID = *owner
	n.Notify(ctx, notification)
}
