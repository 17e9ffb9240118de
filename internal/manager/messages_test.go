package manager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/chrisedwards/slackmanager/internal/slack"
)

func connected(t *testing.T, opts Options) (*Manager, *fakeRemote, *fakeTransport) {
	t.Helper()
	remote, transport := newFakes()
	m, _ := newTestManager(remote, transport, opts)
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Connect(context.Background()))
	return m, remote, transport
}

func raw(channel, user, text, ts string) slack.RawMessage {
	return slack.RawMessage{Channel: channel, User: user, Text: text, Timestamp: ts}
}

func texts(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

func TestNormalizeMessage_Mentions(t *testing.T) {
	dir := slack.NewDirectory([]slack.User{{ID: "U1", Name: "alice"}, {ID: "U2", Name: "bob"}})
	msg := NormalizeMessage(raw("CA", "U2", "hi <@U1> and <@U2>", "1700000000.000100"), dir)

	assert.Equal(t, "hi @alice and @bob", msg.Text)
	assert.Equal(t, "bob", msg.Username)
	assert.Equal(t, "U2", msg.User)
	assert.Equal(t, "CA", msg.ChannelID())
	assert.Equal(t, int64(0), msg.ID)
	assert.Equal(t, time.Unix(1700000000, 100000).UTC(), msg.Time)
}

func TestNormalizeMessage_Author(t *testing.T) {
	dir := slack.NewDirectory([]slack.User{{ID: "U1", Name: "alice"}})

	t.Run("override wins", func(t *testing.T) {
		r := raw("CA", "U1", "x", "1.0")
		r.Username = "deploy-bot"
		msg := NormalizeMessage(r, dir)
		assert.Equal(t, "deploy-bot", msg.Username)
		assert.Equal(t, "deploy-bot", msg.UsernameOverride)
	})

	t.Run("unknown author falls back to the ID", func(t *testing.T) {
		msg := NormalizeMessage(raw("CA", "U9", "x", "1.0"), dir)
		assert.Equal(t, "U9", msg.Username)
	})

	t.Run("starred flag carried over", func(t *testing.T) {
		r := raw("CA", "U1", "x", "1.0")
		r.IsStarred = true
		assert.True(t, NormalizeMessage(r, dir).IsStarred)
	})

	t.Run("nil directory", func(t *testing.T) {
		msg := NormalizeMessage(raw("CA", "U1", "hi <@U1>", "1.0"), nil)
		assert.Equal(t, "hi <@U1>", msg.Text)
		assert.Equal(t, "U1", msg.Username)
	})
}

func TestMessageString(t *testing.T) {
	msg := Message{
		Time:     time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		User:     "U1",
		Username: "alice",
		Text:     "hello",
	}
	assert.Equal(t, "[2024-03-01 12:30:00]: @U1 (alice): hello", msg.String())

	msg.SetRendered("custom")
	assert.Equal(t, "custom", msg.String())

	msg.SetRendered("")
	assert.Contains(t, msg.String(), "hello")
}

func TestNormalize_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		names := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z]{1,8}`), 1, 6, rapid.ID[string]).Draw(t, "names")
		users := make([]slack.User, len(names))
		for i, n := range names {
			users[i] = slack.User{ID: "U" + string(rune('A'+i)), Name: n}
		}
		dir := slack.NewDirectory(users)

		picks := rapid.SliceOf(rapid.IntRange(0, len(users)-1)).Draw(t, "picks")
		var in, want string
		for _, p := range picks {
			in += slack.MentionToken(users[p].ID) + " "
			want += "@" + users[p].Name + " "
		}
		if got := dir.Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	})
}

func TestGetNewMessages(t *testing.T) {
	m, _, transport := connected(t, Options{})

	transport.push(
		raw("CA", "U1", "a1", "1.1"),
		raw("CB", "U2", "b1", "1.2"),
		raw("CA", "U2", "a2 <@U1>", "1.3"),
	)
	require.Eventually(t, func() bool { return m.Buffered() == 3 }, time.Second, 5*time.Millisecond)

	got := m.GetNewMessages([]string{"alpha"})
	assert.Equal(t, []string{"a1", "a2 @alice"}, texts(got))
	assert.Equal(t, "bob", got[1].Username)

	assert.Empty(t, m.GetNewMessages([]string{"alpha"}), "drained messages are returned at most once")
	assert.Equal(t, 1, m.Buffered())

	got = m.GetNewMessages([]string{"beta", "missing"})
	assert.Equal(t, []string{"b1"}, texts(got))
	assert.Zero(t, m.Buffered())
}

func TestGetNewMessages_EmptyAndUnknown(t *testing.T) {
	m, _, transport := connected(t, Options{})
	transport.push(raw("CA", "U1", "a1", "1.1"))

	got := m.GetNewMessages(nil)
	require.NotNil(t, got)
	assert.Empty(t, got)

	assert.Empty(t, m.GetNewMessages([]string{"nope"}))
	assert.Equal(t, 1, m.Buffered())
}

func TestBufferDrain_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		channels := []string{"A", "B", "C"}
		var b buffer
		seq := rapid.SliceOf(rapid.SampledFrom(channels)).Draw(t, "seq")
		for i, ch := range seq {
			b.Append(Message{channelID: ch, ID: int64(i)})
		}
		pick := rapid.SliceOfDistinct(rapid.SampledFrom(channels), rapid.ID[string]).Draw(t, "pick")
		set := map[string]struct{}{}
		for _, ch := range pick {
			set[ch] = struct{}{}
		}

		drained, remaining := b.Drain(set)
		if len(drained)+remaining != len(seq) {
			t.Fatalf("drained %d + remaining %d != %d", len(drained), remaining, len(seq))
		}
		var last int64 = -1
		for _, msg := range drained {
			if _, ok := set[msg.channelID]; !ok {
				t.Fatalf("drained message from unselected channel %s", msg.channelID)
			}
			if msg.ID <= last {
				t.Fatalf("drain out of arrival order")
			}
			last = msg.ID
		}
		again, _ := b.Drain(set)
		if len(again) != 0 {
			t.Fatalf("second drain returned %d messages", len(again))
		}
	})
}

func TestGetMessages(t *testing.T) {
	t.Run("oldest first with resolved mentions", func(t *testing.T) {
		m, remote, _ := connected(t, Options{})
		remote.history["CA"] = []slack.RawMessage{
			raw("CA", "U1", "three <@U2>", "3.0"),
			raw("CA", "U2", "two", "2.0"),
			raw("CA", "U1", "one", "1.0"),
		}
		got := m.GetMessages(context.Background(), "alpha", HistoryQuery{})
		assert.Equal(t, []string{"one", "two", "three @bob"}, texts(got))
		assert.Equal(t, "alice", got[0].Username)
	})

	t.Run("since keeps messages at or after the bound", func(t *testing.T) {
		m, remote, _ := connected(t, Options{})
		remote.history["CA"] = []slack.RawMessage{
			raw("CA", "U1", "five", "5.0"),
			raw("CA", "U1", "three", "3.0"),
			raw("CA", "U1", "one", "1.0"),
		}
		got := m.GetMessages(context.Background(), "alpha", HistoryQuery{Since: time.Unix(2, 0)})
		assert.Equal(t, []string{"three", "five"}, texts(got))
		assert.Equal(t, time.Unix(2, 0), remote.oldest, "bound is passed to the remote")

		got = m.GetMessages(context.Background(), "alpha", HistoryQuery{Since: time.Unix(3, 0)})
		assert.Equal(t, []string{"three", "five"}, texts(got))
	})

	t.Run("message ID filter", func(t *testing.T) {
		m, remote, _ := connected(t, Options{})
		remote.history["CA"] = []slack.RawMessage{raw("CA", "U1", "x", "1.0")}

		id := int64(7)
		assert.Empty(t, m.GetMessages(context.Background(), "alpha", HistoryQuery{MessageID: &id}))
		zero := int64(0)
		assert.Len(t, m.GetMessages(context.Background(), "alpha", HistoryQuery{MessageID: &zero}), 1)
	})

	t.Run("uses fresh member list", func(t *testing.T) {
		m, remote, _ := connected(t, Options{})
		remote.mu.Lock()
		remote.users = append(remote.users, slack.User{ID: "U3", Name: "carol"})
		remote.mu.Unlock()
		remote.history["CA"] = []slack.RawMessage{raw("CA", "U3", "hi <@U3>", "1.0")}

		got := m.GetMessages(context.Background(), "alpha", HistoryQuery{})
		require.Len(t, got, 1)
		assert.Equal(t, "carol", got[0].Username)
		assert.Equal(t, "hi @carol", got[0].Text)
	})

	t.Run("falls back to snapshot when member list fails", func(t *testing.T) {
		m, remote, _ := connected(t, Options{})
		remote.errs["ListUsers"] = errRemote
		remote.history["CA"] = []slack.RawMessage{raw("CA", "U1", "x", "1.0")}

		got := m.GetMessages(context.Background(), "alpha", HistoryQuery{})
		require.Len(t, got, 1)
		assert.Equal(t, "alice", got[0].Username)
	})

	t.Run("unknown channel", func(t *testing.T) {
		m, _, _ := connected(t, Options{})
		got := m.GetMessages(context.Background(), "nope", HistoryQuery{})
		require.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("history failure", func(t *testing.T) {
		m, remote, _ := connected(t, Options{})
		remote.errs["FetchHistory"] = errRemote
		assert.Empty(t, m.GetMessages(context.Background(), "alpha", HistoryQuery{}))
	})
}

func TestSendMessage(t *testing.T) {
	m, remote, _ := connected(t, Options{BotName: "Relay"})

	assert.True(t, m.SendMessage(context.Background(), "beta", "hello"))
	assert.Equal(t, []post{{"CB", "hello", "Relay"}}, remote.posts)

	assert.False(t, m.SendMessage(context.Background(), "nope", "hello"))

	remote.errs["PostMessage"] = errRemote
	assert.False(t, m.SendMessage(context.Background(), "beta", "hello"))
	assert.Len(t, remote.posts, 1)
}
