// Package email delivers transactional email through Resend.
package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	appledger "github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/application/ledger"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/config"
	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// ProviderResend is the configuration name of the Resend provider
const ProviderResend = "resend"

// ErrNotConfigured is returned by Send when no API key or sender is set
var ErrNotConfigured = errors.New("email provider is not configured")

// ResendSender sends email with the Resend API
type ResendSender struct {
	client  *resend.Client
	from    string
	replyTo string
	enabled bool
	logger  *zap.Logger
}

// ResendOption configures a ResendSender
type ResendOption func(*ResendSender)

// WithBaseURL points the client at another API endpoint
func WithBaseURL(u *url.URL) ResendOption {
	return func(s *ResendSender) {
		s.client.BaseURL = u
	}
}

// NewResendSender creates a sender from email configuration. A sender built
// from an incomplete configuration reports Configured() == false.
func NewResendSender(cfg config.EmailConfig, logger *zap.Logger, opts ...ResendOption) *ResendSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resend.NewCustomClient(&http.Client{Timeout: timeout}, cfg.APIKey)

	s := &ResendSender{
		client:  client,
		from:    cfg.From,
		replyTo: cfg.ReplyTo,
		enabled: strings.EqualFold(cfg.Provider, ProviderResend) && cfg.Configured(),
		logger:  logger.Named("email"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured implements appledger.EmailSender
func (s *ResendSender) Configured() bool {
	return s != nil && s.enabled
}

// Send implements appledger.EmailSender
func (s *ResendSender) Send(ctx context.Context, msg *appledger.EmailMessage) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	if msg == nil || strings.TrimSpace(msg.To) == "" {
		return "", errors.New("email recipient is required")
	}

	req := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: s.replyTo,
	}
	for _, a := range msg.Attachments {
		req.Attachments = append(req.Attachments, &resend.Attachment{
			Content:     a.Content,
			Filename:    a.Filename,
			ContentType: a.ContentType,
		})
	}

	start := time.Now()
	resp, err := s.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		s.logger.Warn("Email delivery failed",
			zap.String("subject", msg.Subject),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("resend: %w", err)
	}

	s.logger.Info("Email sent",
		zap.String("message_id", resp.Id),
		zap.Int("attachments", len(msg.Attachments)),
		zap.Duration("duration", time.Since(start)))
	return resp.Id, nil
}

var _ appledger.EmailSender = (*ResendSender)(nil)
