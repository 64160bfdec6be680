// Package events publishes community activity to RabbitMQ so other services
// (push delivery, analytics) can react to it. Publishing is best effort.
package events

import (
	"context"
	"strings"
	"time"

	"github.com/greencoach/greencoach-service/internal/models"
)

// CommunityEvent is the JSON message body published for every notification
type CommunityEvent struct {
	Type           models.NotificationType `json:"type"`
	NotificationID int64                   `json:"notificationId"`
	RecipientID    string                  `json:"recipientId"`
	ActorID        string                  `json:"actorId"`
	PostID         *int64                  `json:"postId,omitempty"`
	CommentID      *int64                  `json:"commentId,omitempty"`
	OccurredAt     time.Time               `json:"occurredAt"`
}

// RoutingKey is community.<type> in lower case, e.g. community.like
func (e CommunityEvent) RoutingKey() string {
	return "community." + strings.ToLower(string(e.Type))
}

// FromNotification builds the event for a stored notification
func FromNotification(n *models.Notification) CommunityEvent {
	return CommunityEvent{
		Type:           n.Type,
		NotificationID: n.ID,
		RecipientID:    n.RecipientID.String(),
		ActorID:        n.ActorID,
		PostID:         n.PostID,
		CommentID:      n.CommentID,
		OccurredAt:     n.CreatedAt.UTC(),
	}
}

// Publisher sends community events to a broker
type Publisher interface {
	Publish(ctx context.Context, event CommunityEvent) error
	Close() error
}

// Noop drops every event. Used when AMQP_URL is not set.
type Noop struct{}

// Publish discards the event
func (Noop) Publish(context.Context, CommunityEvent) error { return nil }

// Close does nothing
func (Noop) Close() error { return nil }
