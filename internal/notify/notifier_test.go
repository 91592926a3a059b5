package notify

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	name  string
	err   error
	sent  int
	title string
}

func (s *fakeSender) Send(_ context.Context, title, _ string) error {
	s.sent++
	s.title = title
	return s.err
}

func (s *fakeSender) Name() string { return s.name }

func TestNotifyFiltersByEvent(t *testing.T) {
	s := &fakeSender{name: "telegram"}
	n := NewNotifier([]Sender{s}, []string{EventGuessResolved}, slog.Default())

	require.NoError(t, n.Notify(context.Background(), EventGuessFailed, "failed", "body"))
	assert.Zero(t, s.sent)

	require.NoError(t, n.Notify(context.Background(), EventGuessResolved, "resolved", "body"))
	assert.Equal(t, 1, s.sent)
	assert.Equal(t, "resolved", s.title)
}

func TestNotifyEmptyFilterAllowsEverything(t *testing.T) {
	s := &fakeSender{name: "discord"}
	n := NewNotifier([]Sender{s}, nil, slog.Default())

	require.NoError(t, n.Notify(context.Background(), "anything", "t", "m"))
	assert.Equal(t, 1, s.sent)
}

func TestDispatchContinuesPastFailedSender(t *testing.T) {
	bad := &fakeSender{name: "telegram", err: assert.AnError}
	good := &fakeSender{name: "discord"}
	n := NewNotifier([]Sender{bad, good}, nil, slog.Default())

	err := n.Notify(context.Background(), EventError, "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
	assert.Equal(t, 1, good.sent, "remaining senders still receive the message")
}

func TestNotifyNoSenders(t *testing.T) {
	n := NewNotifier(nil, nil, slog.Default())
	require.NoError(t, n.Notify(context.Background(), EventError, "t", "m"))
}
