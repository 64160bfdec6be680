package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v5"
)

const sendTimeout = 10 * time.Second

// MailgunOptions configures MailgunService
type MailgunOptions struct {
	Domain      string
	APIKey      string
	APIBase     string // empty keeps the client default (US region)
	FromAddress string
	FromName    string
}

// MailgunService implements the Service interface using Mailgun's API.
type MailgunService struct {
	client mailgun.Mailgun
	domain string
	from   string
}

// NewMailgunService creates a new Mailgun email service
func NewMailgunService(opts MailgunOptions) (*MailgunService, error) {
	mg := mailgun.NewMailgun(strings.TrimSpace(opts.APIKey))
	if base := strings.TrimSpace(opts.APIBase); base != "" {
		if err := mg.SetAPIBase(base); err != nil {
			return nil, fmt.Errorf("invalid mailgun API base: %w", err)
		}
	}
	return &MailgunService{
		client: mg,
		domain: strings.TrimSpace(opts.Domain),
		from:   sender(strings.TrimSpace(opts.FromName), strings.TrimSpace(opts.FromAddress)),
	}, nil
}

// SendPasswordResetCode sends the reset code
func (s *MailgunService) SendPasswordResetCode(ctx context.Context, to, code string, ttl time.Duration) error {
	if err := s.send(ctx, to, resetCodeMessage(code, ttl)); err != nil {
		return fmt.Errorf("failed to send password reset code: %w", err)
	}
	return nil
}

// SendPasswordChangedEmail sends the password changed notice
func (s *MailgunService) SendPasswordChangedEmail(ctx context.Context, to string) error {
	if err := s.send(ctx, to, passwordChangedMessage()); err != nil {
		return fmt.Errorf("failed to send password changed email: %w", err)
	}
	return nil
}

func (s *MailgunService) send(ctx context.Context, to string, msg message) error {
	m := mailgun.NewMessage(s.domain, s.from, msg.Subject, msg.Text, to)
	m.SetHTML(msg.HTML)

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := s.client.Send(ctx, m)
	return err
}

func sender(name, address string) string {
	if name == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", name, address)
}
