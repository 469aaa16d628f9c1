package notifier

import (
	"context"

	"github.com/rs/zerolog"
)

var _ Notifier = (*LogNotifier)(nil)

// LogNotifier writes notifications to the log. Used when no SMTP relay is
// configured so outcomes stay observable in development deployments.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "log-notifier").Logger()}
}

func (n *LogNotifier) Notify(_ context.Context, target string, kind OutcomeKind, details Details) error {
	subject, body := Compose(kind, details)
	n.log.Info().
		Str("target", target).
		Str("kind", string(kind)).
		Str("subject", subject).
		Str("body", body).
		Msg("claim outcome")
	return nil
}
