package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/mlecanu/ilconto/internal/model"
)

// SMTPConfig holds the mail relay settings. Auth fields may be empty for an
// unauthenticated local relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier sends onboarding notices as plain-text email through an SMTP
// relay.
type SMTPNotifier struct {
	cfg    SMTPConfig
	logger *slog.Logger
}

var _ Notifier = (*SMTPNotifier)(nil)

// NewSMTPNotifier creates an SMTPNotifier. The connection is dialled per
// send — invite volume is tiny, connection pooling would be noise.
func NewSMTPNotifier(cfg SMTPConfig, logger *slog.Logger) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, logger: logger}
}

// SendOnboardingNotice emails the invited user a link to activate their
// provisioned account.
func (n *SMTPNotifier) SendOnboardingNotice(ctx context.Context, to *model.Identity, board *model.Board, inviter *model.Identity, activationURL string) error {
	subject := fmt.Sprintf("You've been invited to join the board %s", board.Title)

	var body strings.Builder
	fmt.Fprintf(&body, "%s invited you to join the board %q.\r\n\r\n", inviter.Email, board.Title)
	fmt.Fprintf(&body, "Finish setting up your account here:\r\n%s\r\n\r\n", activationURL)
	fmt.Fprintf(&body, "The link is single-use. If you weren't expecting this invitation you can ignore this email.\r\n")

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		n.cfg.From, to.Email, subject, body.String())

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)

	var a smtp.Auth
	if n.cfg.Username != "" {
		a = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	if err := smtp.SendMail(addr, a, n.cfg.From, []string{to.Email}, []byte(msg)); err != nil {
		return fmt.Errorf("notify: sending onboarding email to %s: %w", to.Email, err)
	}

	n.logger.Info("onboarding notice sent",
		slog.String("to", to.Email),
		slog.String("boardID", board.ID),
	)
	return nil
}

// LogNotifier writes onboarding notices to the log instead of sending email.
// Used in development and whenever SMTP is not configured — the activation
// URL lands in the server log so the flow stays testable end to end.
type LogNotifier struct {
	logger *slog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendOnboardingNotice(_ context.Context, to *model.Identity, board *model.Board, inviter *model.Identity, activationURL string) error {
	n.logger.Info("onboarding notice (email disabled)",
		slog.String("to", to.Email),
		slog.String("board", board.Title),
		slog.String("inviter", inviter.Email),
		slog.String("activationURL", activationURL),
	)
	return nil
}
