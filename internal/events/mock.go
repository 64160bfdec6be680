package events

import (
	"context"
	"sync"
)

// MockPublisher records published events for tests
type MockPublisher struct {
	Err error

	mu     sync.Mutex
	events []CommunityEvent
}

// NewMockPublisher creates an empty recorder
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish records the event, then returns Err
func (m *MockPublisher) Publish(_ context.Context, event CommunityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.Err
}

// Close does nothing
func (m *MockPublisher) Close() error { return nil }

// Events returns a copy of everything published so far
func (m *MockPublisher) Events() []CommunityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CommunityEvent(nil), m.events...)
}
