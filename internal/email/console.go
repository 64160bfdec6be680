package email

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ConsoleService writes mail to the log instead of sending it. Meant for local development.
type ConsoleService struct {
	logger *zap.Logger
	from   string
}

// NewConsoleService creates a new console-based email service
func NewConsoleService(logger *zap.Logger, fromAddress, fromName string) *ConsoleService {
	return &ConsoleService{
		logger: logger.Named("email"),
		from:   sender(fromName, fromAddress),
	}
}

// SendPasswordResetCode logs the reset code
func (s *ConsoleService) SendPasswordResetCode(_ context.Context, to, code string, ttl time.Duration) error {
	msg := resetCodeMessage(code, ttl)
	s.logger.Info("password reset code email",
		zap.String("to", to),
		zap.String("from", s.from),
		zap.String("subject", msg.Subject),
		zap.String("code", code),
		zap.Duration("ttl", ttl),
	)
	return nil
}

// SendPasswordChangedEmail logs the password changed notice
func (s *ConsoleService) SendPasswordChangedEmail(_ context.Context, to string) error {
	msg := passwordChangedMessage()
	s.logger.Info("password changed email",
		zap.String("to", to),
		zap.String("from", s.from),
		zap.String("subject", msg.Subject),
	)
	return nil
}
