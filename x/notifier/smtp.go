package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
)

// SMTPConfig holds mail delivery settings.
type SMTPConfig struct {
	Host     string `mapstructure:"host"     yaml:"host"`
	Port     int    `mapstructure:"port"     yaml:"port"`
	From     string `mapstructure:"from"     yaml:"from"`
	Password string `mapstructure:"password" yaml:"password" env:"NOTIFIER_SMTP_PASSWORD"`
}

// DefaultSMTPConfig returns defaults for a Gmail-style relay.
func DefaultSMTPConfig() SMTPConfig {
	return SMTPConfig{
		Host: "smtp.gmail.com",
		Port: 587,
	}
}

// Enabled reports whether SMTP delivery is configured.
func (c SMTPConfig) Enabled() bool {
	return strings.TrimSpace(c.Host) != "" && strings.TrimSpace(c.From) != ""
}

var _ Notifier = (*SMTPNotifier)(nil)

// SMTPNotifier delivers outcome emails over SMTP with STARTTLS.
type SMTPNotifier struct {
	cfg  SMTPConfig
	log  zerolog.Logger
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier creates an email notifier.
func NewSMTPNotifier(cfg SMTPConfig, log zerolog.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		cfg:  cfg,
		log:  log.With().Str("component", "smtp-notifier").Logger(),
		send: smtp.SendMail,
	}
}

// Notify composes and sends the outcome email. Errors are returned for the
// caller to log; there is no retry here.
func (n *SMTPNotifier) Notify(ctx context.Context, target string, kind OutcomeKind, details Details) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(target) == "" {
		return fmt.Errorf("notifier: empty target")
	}

	subject, body := Compose(kind, details)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", n.cfg.From, target, subject, body)

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.From, n.cfg.Password, n.cfg.Host)
	if err := n.send(addr, auth, n.cfg.From, []string{target}, []byte(msg)); err != nil {
		return fmt.Errorf("notifier: send failed: %w", err)
	}

	n.log.Info().Str("target", target).Str("kind", string(kind)).Str("claim_id", details.ClaimID).Msg("notification sent")
	return nil
}

// Compose renders the subject and body for an outcome kind.
func Compose(kind OutcomeKind, details Details) (subject, body string) {
	switch kind {
	case OutcomeDisputed:
		return "Claim Disputed",
			fmt.Sprintf("Your claim %s for %s was disputed. No rewards issued.", details.ClaimID, details.SubjectLabel)
	default:
		return "Reward Received",
			fmt.Sprintf("Your claim %s for %s was upheld. The reward has been sent to %s.", details.ClaimID, details.SubjectLabel, details.Beneficiary)
	}
}
