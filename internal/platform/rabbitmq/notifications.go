package rabbitmq

import (
	"context"

	"github.com/phrazzld/scry-planner/internal/task"
)

// Routing keys
const (
	RoutingKeyReminder     = "notification.reminder"
	RoutingKeyVerification = "email.verification"
	RoutingKeyLoginCode    = "email.login_code"
	RoutingKeyWelcome      = "email.welcome"
)

// EmailMessage is the body of every email.* message.
type EmailMessage struct {
	Type     string `json:"type"`
	To       string `json:"to"`
	Username string `json:"username,omitempty"`
	Token    string `json:"token,omitempty"`
	Code     string `json:"code,omitempty"`
}

// Mailer implements task.Mailer by publishing email messages.
type Mailer struct {
	pub *Publisher
}

var _ task.Mailer = (*Mailer)(nil)

// NewMailer creates a Mailer over pub.
func NewMailer(pub *Publisher) *Mailer {
	return &Mailer{pub: pub}
}

// SendVerificationEmail implements task.Mailer.
func (m *Mailer) SendVerificationEmail(ctx context.Context, to, username, token string) (string, error) {
	return m.pub.Publish(ctx, RoutingKeyVerification, EmailMessage{
		Type:     task.EmailTypeVerification,
		To:       to,
		Username: username,
		Token:    token,
	})
}

// SendLoginCode implements task.Mailer.
func (m *Mailer) SendLoginCode(ctx context.Context, to, code, username string) (string, error) {
	return m.pub.Publish(ctx, RoutingKeyLoginCode, EmailMessage{
		Type:     task.EmailTypeLoginCode,
		To:       to,
		Username: username,
		Code:     code,
	})
}

// SendWelcomeEmail implements task.Mailer.
func (m *Mailer) SendWelcomeEmail(ctx context.Context, to, username string) (string, error) {
	return m.pub.Publish(ctx, RoutingKeyWelcome, EmailMessage{
		Type:     task.EmailTypeWelcome,
		To:       to,
		Username: username,
	})
}

// Notifier implements task.Notifier by publishing reminder messages.
type Notifier struct {
	pub *Publisher
}

var _ task.Notifier = (*Notifier)(nil)

// NewNotifier creates a Notifier over pub.
func NewNotifier(pub *Publisher) *Notifier {
	return &Notifier{pub: pub}
}

// SendReminder implements task.Notifier.
func (n *Notifier) SendReminder(ctx context.Context, reminder task.Reminder) error {
	_, err := n.pub.Publish(ctx, RoutingKeyReminder, reminder)
	return err
}
