package email

import (
	"context"
	"sync"
	"time"
)

// SentEmail is one message recorded by MockService
type SentEmail struct {
	To   string
	Code string // reset code mails only
	TTL  time.Duration
}

// MockService records mail in memory for assertions in tests.
// Err, when set, is returned from every send.
type MockService struct {
	mu      sync.Mutex
	resets  []SentEmail
	changed []SentEmail
	Err     error
}

// NewMockService creates a new mock email service
func NewMockService() *MockService {
	return &MockService{}
}

// SendPasswordResetCode records a reset code mail
func (s *MockService) SendPasswordResetCode(_ context.Context, to, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.resets = append(s.resets, SentEmail{To: to, Code: code, TTL: ttl})
	return nil
}

// SendPasswordChangedEmail records a password changed notice
func (s *MockService) SendPasswordChangedEmail(_ context.Context, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.changed = append(s.changed, SentEmail{To: to})
	return nil
}

// ResetCodes returns a copy of the recorded reset code mails
func (s *MockService) ResetCodes() []SentEmail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentEmail(nil), s.resets...)
}

// PasswordChanged returns a copy of the recorded change notices
func (s *MockService) PasswordChanged() []SentEmail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentEmail(nil), s.changed...)
}

// LastResetCode returns the most recent code sent to the address, or ""
func (s *MockService) LastResetCode(to string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.resets) - 1; i >= 0; i-- {
		if s.resets[i].To == to {
			return s.resets[i].Code
		}
	}
	return ""
}
