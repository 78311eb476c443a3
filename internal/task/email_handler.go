package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-planner/internal/platform/logger"
)

// Mailer sends transactional emails and returns the provider message id.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, username, token string) (string, error)
	SendLoginCode(ctx context.Context, to, code, username string) (string, error)
	SendWelcomeEmail(ctx context.Context, to, username string) (string, error)
}

// EmailResult is the result of a send-email job.
type EmailResult struct {
	Sent      bool      `json:"sent"`
	To        string    `json:"to"`
	Type      string    `json:"type"`
	MessageID string    `json:"messageId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EmailHandler delivers transactional emails.
type EmailHandler struct {
	mailer Mailer
	logger *slog.Logger
	now    func() time.Time
}

// NewEmailHandler creates a handler for the email family.
func NewEmailHandler(mailer Mailer, log *slog.Logger) (*EmailHandler, error) {
	if mailer == nil {
		return nil, errors.New("mailer cannot be nil")
	}
	if log == nil {
		return nil, ErrNilLogger
	}
	return &EmailHandler{mailer: mailer, logger: log, now: time.Now}, nil
}

// Handle implements Handler. Missing secrets and unknown types are not
// retried. A failed welcome email is logged and reported as unsent.
func (h *EmailHandler) Handle(ctx context.Context, job *Job, progress ProgressReporter) (any, error) {
	log := logger.FromContextOrDefault(ctx, h.logger)

	var p EmailPayload
	if err := job.DecodePayload(&p); err != nil {
		return nil, err
	}

	var (
		messageID string
		err       error
	)
	switch p.Type {
	case EmailTypeVerification:
		if p.Data.Token == "" {
			return nil, Unrecoverable(fmt.Errorf("%w: token is required for verification email", ErrInvalidPayload))
		}
		messageID, err = h.mailer.SendVerificationEmail(ctx, p.To, p.Username, p.Data.Token)
	case EmailTypeLoginCode:
		if p.Data.Code == "" {
			return nil, Unrecoverable(fmt.Errorf("%w: code is required for login code email", ErrInvalidPayload))
		}
		messageID, err = h.mailer.SendLoginCode(ctx, p.To, p.Data.Code, p.Username)
	case EmailTypeWelcome:
		messageID, err = h.mailer.SendWelcomeEmail(ctx, p.To, p.Username)
		if err != nil {
			log.WarnContext(ctx, "welcome email failed, not retrying",
				"type", p.Type,
				"error", err)
			return EmailResult{Sent: false, To: p.To, Type: p.Type, Timestamp: h.now().UTC()}, nil
		}
	default:
		return nil, Unrecoverable(fmt.Errorf("%w: unknown email type %q", ErrInvalidPayload, p.Type))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to send %s email: %w", p.Type, err)
	}

	log.InfoContext(ctx, "email sent", "type", p.Type)
	return EmailResult{
		Sent:      true,
		To:        p.To,
		Type:      p.Type,
		MessageID: messageID,
		Timestamp: h.now().UTC(),
	}, nil
}
