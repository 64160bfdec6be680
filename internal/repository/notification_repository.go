package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/greencoach/greencoach-service/internal/models"
)

// ErrNotificationNotFound is returned when the recipient has no such notification
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepository keeps per-recipient community notifications
type NotificationRepository interface {
	// Add assigns ID and CreatedAt when unset and stores the notification
	Add(ctx context.Context, n *models.Notification) error

	// List returns the recipient's notifications, newest first
	List(ctx context.Context, recipient uuid.UUID) ([]*models.Notification, error)

	UnreadCount(ctx context.Context, recipient uuid.UUID) (int, error)
	MarkAllRead(ctx context.Context, recipient uuid.UUID) error
	MarkRead(ctx context.Context, recipient uuid.UUID, id int64) error
	Delete(ctx context.Context, recipient uuid.UUID, id int64) error
}

// MemoryNotificationRepository is a process-local NotificationRepository.
// Contents are lost on restart.
type MemoryNotificationRepository struct {
	seq atomic.Int64
	now func() time.Time

	mu     sync.RWMutex
	byUser map[uuid.UUID][]*models.Notification
}

// NewMemoryNotificationRepository creates an empty store
func NewMemoryNotificationRepository() *MemoryNotificationRepository {
	return &MemoryNotificationRepository{
		now:    time.Now,
		byUser: make(map[uuid.UUID][]*models.Notification),
	}
}

// Add implements NotificationRepository.Add
func (r *MemoryNotificationRepository) Add(_ context.Context, n *models.Notification) error {
	if n.ID == 0 {
		n.ID = r.seq.Add(1)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now()
	}

	stored := *n
	r.mu.Lock()
	r.byUser[n.RecipientID] = append(r.byUser[n.RecipientID], &stored)
	r.mu.Unlock()
	return nil
}

// List implements NotificationRepository.List
func (r *MemoryNotificationRepository) List(_ context.Context, recipient uuid.UUID) ([]*models.Notification, error) {
	r.mu.RLock()
	items := r.byUser[recipient]
	out := make([]*models.Notification, len(items))
	for i, n := range items {
		c := *n
		out[i] = &c
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UnreadCount implements NotificationRepository.UnreadCount
func (r *MemoryNotificationRepository) UnreadCount(_ context.Context, recipient uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, n := range r.byUser[recipient] {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

// MarkAllRead implements NotificationRepository.MarkAllRead
func (r *MemoryNotificationRepository) MarkAllRead(_ context.Context, recipient uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.byUser[recipient] {
		n.Read = true
	}
	return nil
}

// MarkRead implements NotificationRepository.MarkRead
func (r *MemoryNotificationRepository) MarkRead(_ context.Context, recipient uuid.UUID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.byUser[recipient] {
		if n.ID == id {
			n.Read = true
			return nil
		}
	}
	return ErrNotificationNotFound
}

// Delete implements NotificationRepository.Delete
func (r *MemoryNotificationRepository) Delete(_ context.Context, recipient uuid.UUID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.byUser[recipient]
	for i, n := range items {
		if n.ID == id {
			r.byUser[recipient] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return ErrNotificationNotFound
}
