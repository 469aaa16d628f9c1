package notifier

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestCompose(t *testing.T) {
	t.Parallel()

	details := Details{ClaimID: "0xabc", SubjectLabel: "Pool D", Beneficiary: "0xD98c"}

	subject, body := Compose(OutcomeDisputed, details)
	require.Equal(t, "Claim Disputed", subject)
	require.Contains(t, body, "disputed")
	require.Contains(t, body, "Pool D")

	subject, body = Compose(OutcomeUpheld, details)
	require.Equal(t, "Reward Received", subject)
	require.Contains(t, body, "upheld")
	require.Contains(t, body, "0xD98c")
}

func TestSMTPNotifier_SendsComposedMessage(t *testing.T) {
	t.Parallel()

	cfg := DefaultSMTPConfig()
	cfg.From = "agent@example.com"

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	n := NewSMTPNotifier(cfg, zerolog.Nop())
	n.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := n.Notify(context.Background(), "user@example.com", OutcomeUpheld, Details{ClaimID: "0xabc", SubjectLabel: "Pool D"})
	require.NoError(t, err)
	require.Equal(t, "smtp.gmail.com:587", gotAddr)
	require.Equal(t, "agent@example.com", gotFrom)
	require.Equal(t, []string{"user@example.com"}, gotTo)
	require.Contains(t, string(gotMsg), "Subject: Reward Received")
	require.Contains(t, string(gotMsg), "To: user@example.com")
}

func TestSMTPNotifier_EmptyTarget(t *testing.T) {
	t.Parallel()

	n := NewSMTPNotifier(DefaultSMTPConfig(), zerolog.Nop())
	n.send = func(string, smtp.Auth, string, []string, []byte) error { return nil }
	require.Error(t, n.Notify(context.Background(), "  ", OutcomeUpheld, Details{}))
}

func TestSMTPNotifier_SendError(t *testing.T) {
	t.Parallel()

	cfg := DefaultSMTPConfig()
	cfg.From = "agent@example.com"
	n := NewSMTPNotifier(cfg, zerolog.Nop())
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}
	require.Error(t, n.Notify(context.Background(), "user@example.com", OutcomeDisputed, Details{}))
}
