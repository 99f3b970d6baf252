package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	name   string
	events []string
	err    error
}

func (s *recordingSender) Send(_ context.Context, event, _, _ string) error {
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSender) Name() string { return s.name }

func TestNotifyFiltersByEvent(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{sender}, []string{"proposal_passed"}, slog.New(slog.DiscardHandler))

	require.NoError(t, n.Notify(context.Background(), "vote_cast", "t", "m"))
	assert.Empty(t, sender.events, "unlisted events must not reach senders")

	require.NoError(t, n.Notify(context.Background(), "proposal_passed", "t", "m"))
	assert.Equal(t, []string{"proposal_passed"}, sender.events)
}

func TestNotifyEmptyFilterAllowsAll(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{sender}, nil, slog.New(slog.DiscardHandler))

	require.NoError(t, n.Notify(context.Background(), "anything", "t", "m"))
	assert.Equal(t, []string{"anything"}, sender.events)
}

func TestDispatchContinuesPastFailedSender(t *testing.T) {
	bad := &recordingSender{name: "bad", err: errors.New("webhook down")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, slog.New(slog.DiscardHandler))

	err := n.Notify(context.Background(), "proposal_executed", "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.Equal(t, []string{"proposal_executed"}, good.events, "remaining senders still deliver")
}

func TestDiscordEmbedColors(t *testing.T) {
	assert.Equal(t, colorPassed, embedColor("proposal_passed"))
	assert.Equal(t, colorFailed, embedColor("proposal_failed"))
	assert.Equal(t, colorFailed, embedColor("proposal_canceled"))
	assert.Equal(t, colorExecuted, embedColor("proposal_executed"))
	assert.Equal(t, colorNeutral, embedColor("health_updated"))
}
