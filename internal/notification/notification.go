package notification

import (
	"context"
	"log/slog"

	"github.com/hawiyya/hawiyya-server/internal/account"
)

// Email message kinds.
const (
	EmailKindWelcome          = "welcome"
	EmailKindVerificationCode = "verification_code"
	EmailKindChangeEmail      = "change_email"
	EmailKindLoginActivity    = "login_activity"
	EmailKindForgotPassword   = "forgot_password"
	EmailKindDeletionCode     = "deletion_code"
)

// Email is a fire-and-forget message rendered in the recipient's
// language by the delivery collaborator.
type Email struct {
	Kind     string
	Language account.Language
	Address  string
	Name     string
	Code     string
	Link     string
}

// EmailSender delivers transactional emails.
type EmailSender interface {
	Send(ctx context.Context, email Email) error
}

// SMS is a short message addressed to a full phone number.
type SMS struct {
	Language account.Language
	Phone    string
	Body     string
}

// SMSSender delivers text messages.
type SMSSender interface {
	Send(ctx context.Context, sms SMS) error
}

// Push is one push dispatch to a batch of device tokens sharing a
// language.
type Push struct {
	Title    string
	Body     string
	PhotoURL string
	Tokens   []string
}

// PushSender delivers push notifications.
type PushSender interface {
	Send(ctx context.Context, push Push) error
}

// LoggerEmailSender writes emails to the structured logger instead of
// delivering them. Stands in for the real transport in dev and tests.
type LoggerEmailSender struct {
	logger *slog.Logger
}

// NewLoggerEmailSender constructs the logging email stub.
func NewLoggerEmailSender(logger *slog.Logger) *LoggerEmailSender {
	return &LoggerEmailSender{logger: logger}
}

// Send writes the email to the logger.
func (l *LoggerEmailSender) Send(_ context.Context, email Email) error {
	if l == nil || l.logger == nil {
		return nil
	}
	l.logger.Info("email", "kind", email.Kind, "lang", email.Language, "address", email.Address, "name", email.Name)
	return nil
}

// LoggerSMSSender writes text messages to the structured logger.
type LoggerSMSSender struct {
	logger *slog.Logger
}

// NewLoggerSMSSender constructs the logging SMS stub.
func NewLoggerSMSSender(logger *slog.Logger) *LoggerSMSSender {
	return &LoggerSMSSender{logger: logger}
}

// Send writes the SMS to the logger.
func (l *LoggerSMSSender) Send(_ context.Context, sms SMS) error {
	if l == nil || l.logger == nil {
		return nil
	}
	l.logger.Info("sms", "lang", sms.Language, "phone", sms.Phone)
	return nil
}

// LoggerPushSender writes push batches to the structured logger.
type LoggerPushSender struct {
	logger *slog.Logger
}

// NewLoggerPushSender constructs the logging push stub.
func NewLoggerPushSender(logger *slog.Logger) *LoggerPushSender {
	return &LoggerPushSender{logger: logger}
}

// Send writes the push batch to the logger.
func (l *LoggerPushSender) Send(_ context.Context, push Push) error {
	if l == nil || l.logger == nil {
		return nil
	}
	l.logger.Info("push", "title", push.Title, "tokens", len(push.Tokens))
	return nil
}
