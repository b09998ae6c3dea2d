package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	slacklib "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/agileboard/internal/notify"
)

// --- mocks ---

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
	gate chan struct{} // when non-nil, Send blocks until it is closed
}

func (r *recordingNotifier) Send(_ context.Context, msg notify.Message) error {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingNotifier) sent() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.msgs...)
}

type mockSlackAPI struct {
	channel string
	opts    []slacklib.MsgOption
	err     error
}

func (m *mockSlackAPI) PostMessageContext(_ context.Context, channelID string, options ...slacklib.MsgOption) (string, string, error) {
	m.channel = channelID
	m.opts = options
	if m.err != nil {
		return "", "", m.err
	}
	return channelID, "1700000000.000100", nil
}

var invite = notify.Message{
	Kind:      notify.KindInvitation,
	Recipient: "bob@example.com",
	Subject:   "You were invited to Apollo",
	Text:      "alice@example.com invited you to collaborate.",
	Link:      "http://localhost:8080/invitations",
}

// --- LogNotifier ---

func TestLogNotifier(t *testing.T) {
	t.Parallel()

	assert.NoError(t, notify.LogNotifier{}.Send(t.Context(), invite))
}

// --- Registry ---

func TestRegistry(t *testing.T) {
	t.Parallel()

	t.Run("empty registry reports no notifiers", func(t *testing.T) {
		t.Parallel()

		err := notify.NewRegistry().Send(t.Context(), invite)
		assert.ErrorIs(t, err, notify.ErrNoNotifiers)
	})

	t.Run("fans out to every channel", func(t *testing.T) {
		t.Parallel()

		a, b := &recordingNotifier{}, &recordingNotifier{}
		r := notify.NewRegistry()
		r.Register("a", a)
		r.Register("b", b)

		require.NoError(t, r.Send(t.Context(), invite))
		assert.Len(t, a.sent(), 1)
		assert.Len(t, b.sent(), 1)
		assert.Equal(t, []string{"a", "b"}, r.Names())

		got, ok := r.Get("a")
		require.True(t, ok)
		assert.Same(t, a, got)
		_, ok = r.Get("missing")
		assert.False(t, ok)
	})

	t.Run("one failure does not stop the others", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		bad, good := &recordingNotifier{err: boom}, &recordingNotifier{}
		r := notify.NewRegistry()
		r.Register("bad", bad)
		r.Register("good", good)

		err := r.Send(t.Context(), invite)
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "bad")
		assert.Len(t, good.sent(), 1)
	})
}

// --- SlackNotifier ---

func TestSlackNotifier(t *testing.T) {
	t.Parallel()

	t.Run("posts to configured channel", func(t *testing.T) {
		t.Parallel()

		api := &mockSlackAPI{}
		n := notify.NewSlackNotifier(api, "#board")

		require.NoError(t, n.Send(t.Context(), invite))
		assert.Equal(t, "#board", api.channel)
		assert.Len(t, api.opts, 2)
	})

	t.Run("wraps api errors", func(t *testing.T) {
		t.Parallel()

		api := &mockSlackAPI{err: errors.New("channel_not_found")}
		err := notify.NewSlackNotifier(api, "#nope").Send(t.Context(), invite)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "notify.SlackNotifier.Send")
		assert.Contains(t, err.Error(), "channel_not_found")
	})
}

func TestBuildMessageBlocks(t *testing.T) {
	t.Parallel()

	blocks := notify.BuildMessageBlocks(invite)
	require.Len(t, blocks, 2)

	section, ok := blocks[0].(*slacklib.SectionBlock)
	require.True(t, ok)
	assert.Contains(t, section.Text.Text, "*You were invited to Apollo*")
	assert.Contains(t, section.Text.Text, "<http://localhost:8080/invitations|Open in Agileboard>")

	noLink := invite
	noLink.Link = ""
	section, ok = notify.BuildMessageBlocks(noLink)[0].(*slacklib.SectionBlock)
	require.True(t, ok)
	assert.NotContains(t, section.Text.Text, "Open in Agileboard")
}

// --- Dispatcher ---

func TestDispatcher_DeliversQueuedMessages(t *testing.T) {
	t.Parallel()

	next := &recordingNotifier{}
	d := notify.NewDispatcher(next, 8, 2)

	for range 5 {
		require.NoError(t, d.Send(t.Context(), invite))
	}

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))

	assert.Len(t, next.sent(), 5)
}

func TestDispatcher_FullQueueDrops(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	next := &recordingNotifier{gate: gate}
	d := notify.NewDispatcher(next, 1, 1)

	// The first message occupies the worker, the second fills the queue.
	require.NoError(t, d.Enqueue(invite))
	require.Eventually(t, func() bool {
		return d.Enqueue(invite) == nil
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, d.Enqueue(invite), notify.ErrQueueFull)
	assert.ErrorIs(t, d.Send(t.Context(), invite), notify.ErrQueueFull)

	close(gate)
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))

	assert.Len(t, next.sent(), 2)
	assert.ErrorIs(t, d.Enqueue(invite), notify.ErrDispatcherClosed)
}

func TestDispatcher_FailedDeliveryKeepsWorking(t *testing.T) {
	t.Parallel()

	next := &recordingNotifier{err: errors.New("smtp down")}
	d := notify.NewDispatcher(next, 4, 1)

	require.NoError(t, d.Send(t.Context(), invite))
	require.NoError(t, d.Send(t.Context(), invite))

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	assert.NoError(t, d.Close(ctx))
	assert.Empty(t, next.sent())
}
