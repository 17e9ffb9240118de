// Package manager is a synchronous facade over Slack. It turns the
// asynchronous handshake into one blocking Connect, gates every operation
// behind a lazy connection check, buffers pushed messages per channel until
// they are drained, and serves normalized channel history.
//
// Public operations never fail hard: a missing channel, a failed remote call
// or an unusable connection is logged with the operation name and reported
// as an empty or false result.
package manager

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chrisedwards/slackmanager/internal/slack"
)

const (
	// DefaultHandshakeTimeout bounds the wait for each handshake signal.
	DefaultHandshakeTimeout = 5 * time.Second

	// DefaultNotifyQueueSize is the observer queue capacity.
	DefaultNotifyQueueSize = 64

	// DefaultBotName is the username shown on posted messages.
	DefaultBotName = "SlackManager"
)

// Remote is the request/response side of Slack.
type Remote interface {
	ListUsers(ctx context.Context) ([]slack.User, error)
	ListChannels(ctx context.Context) ([]slack.Channel, error)
	PostMessage(ctx context.Context, channelID, text, botName string) error
	// FetchHistory returns messages newest first. A non-zero oldest lets the
	// remote skip older messages; callers still filter.
	FetchHistory(ctx context.Context, channelID string, oldest time.Time) ([]slack.RawMessage, error)
	InviteUser(ctx context.Context, channelID, userID string) error
	RemoveUser(ctx context.Context, channelID, userID string) error
	CreateChannel(ctx context.Context, name string) (*slack.Channel, error)
	DeleteChannel(ctx context.Context, channelID string) error
	OpenDirect(ctx context.Context, userID string) (string, error)
}

// Transport starts a handshake. It must return without waiting for any
// signal; handlers are invoked asynchronously, all from one goroutine.
type Transport interface {
	Start(ctx context.Context, h slack.Handlers, live bool) (io.Closer, error)
}

// Options configures a Manager. Zero values select defaults.
type Options struct {
	BotName          string
	HandshakeTimeout time.Duration
	// UnboundedWait lifts the handshake wait bound, for stepping through
	// code in a debugger. It is also lifted when a tracer is detected.
	UnboundedWait bool
	// LoginOnly skips the live connection on every handshake.
	LoginOnly       bool
	NotifyQueueSize int
	// RefreshAfterCreate invalidates the connection after CreateChannel so
	// the next operation re-fetches the workspace snapshot.
	RefreshAfterCreate bool
	Logger             *slog.Logger
	Registerer         prometheus.Registerer
}

func (o Options) live() bool { return !o.LoginOnly }

type snapshot struct {
	self     slack.Self
	team     slack.Team
	users    []slack.User
	channels []slack.Channel
	dir      *slack.Directory
}

// Manager is one client instance. It is safe for concurrent use.
type Manager struct {
	remote    Remote
	transport Transport
	opts      Options
	logger    *slog.Logger
	metrics   *metrics
	debugging bool

	connectMu sync.Mutex // serializes handshakes

	stateMu sync.RWMutex
	state   State
	session io.Closer

	snapMu  sync.RWMutex
	snap    snapshot
	attempt uint64 // handshake generation

	buffer     buffer
	dispatcher *dispatcher
	dms        *slack.DMCache
}

// New creates a disconnected manager.
func New(remote Remote, transport Transport, opts Options) *Manager {
	if opts.BotName == "" {
		opts.BotName = DefaultBotName
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if opts.NotifyQueueSize <= 0 {
		opts.NotifyQueueSize = DefaultNotifyQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	m := &Manager{
		remote:    remote,
		transport: transport,
		opts:      opts,
		logger:    opts.Logger,
		metrics:   newMetrics(opts.Registerer),
		debugging: debuggerAttached(),
		dms:       slack.NewDMCache(),
	}
	m.dispatcher = newDispatcher(opts.NotifyQueueSize, m.logger, m.metrics.dropped.Inc)
	return m
}

// BotName returns the username used for posted messages.
func (m *Manager) BotName() string { return m.opts.BotName }

// Identity returns who the last successful login authenticated as.
func (m *Manager) Identity() (slack.Self, slack.Team) {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	return m.snap.self, m.snap.team
}

func newSnapshot(r *slack.LoginResponse) snapshot {
	return snapshot{
		self:     r.Self,
		team:     r.Team,
		users:    r.Users,
		channels: r.Channels,
		dir:      slack.NewDirectory(r.Users),
	}
}

func (m *Manager) directory() *slack.Directory {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	return m.snap.dir
}

func (m *Manager) lookupChannel(name string) (slack.Channel, bool) {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	for _, ch := range m.snap.channels {
		if ch.Name == name {
			return ch, true
		}
	}
	return slack.Channel{}, false
}

func (m *Manager) lookupUser(name string) (slack.User, bool) {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	for _, u := range m.snap.users {
		if u.Name == name {
			return u, true
		}
	}
	return slack.User{}, false
}

// channelByName resolves a channel from the snapshot after the gate.
func (m *Manager) channelByName(ctx context.Context, name, op string) (slack.Channel, bool) {
	if !m.ensureConnected(ctx, op) {
		return slack.Channel{}, false
	}
	ch, ok := m.lookupChannel(name)
	if !ok {
		m.logger.Warn(name+" - channel not found", "op", op)
	}
	return ch, ok
}

// onPush runs on the transport's delivery goroutine. Names are resolved with
// the snapshot taken at login, not re-fetched per message.
func (m *Manager) onPush(raw slack.RawMessage) {
	msg := NormalizeMessage(raw, m.directory())
	n := m.buffer.Append(msg)
	m.metrics.pushed.Inc()
	m.metrics.buffered.Set(float64(n))
	if !m.dispatcher.Publish(msg) {
		m.logger.Warn("observer queue full, notification dropped", "op", "OnNewMessage", "channel", msg.ChannelID())
	}
}

// Subscribe registers an observer for pushed messages and returns a function
// that removes it. Observers run on a dedicated goroutine, one message at a
// time, in arrival order; a slow observer delays other observers but never
// the live connection.
func (m *Manager) Subscribe(fn Observer) func() {
	return m.dispatcher.Subscribe(fn)
}

// GetNewMessages drains pushed messages for the named channels, in arrival
// order. Unknown names are skipped. Each message is returned at most once.
func (m *Manager) GetNewMessages(channelNames []string) []Message {
	ids := make(map[string]struct{}, len(channelNames))
	for _, name := range channelNames {
		if ch, ok := m.lookupChannel(name); ok {
			ids[ch.ID] = struct{}{}
		}
	}
	msgs, remaining := m.buffer.Drain(ids)
	m.metrics.buffered.Set(float64(remaining))
	if msgs == nil {
		msgs = []Message{}
	}
	return msgs
}

// Buffered returns the number of pushed messages not yet drained.
func (m *Manager) Buffered() int {
	return m.buffer.Len()
}

// SendMessage posts text to the named channel as the bot.
func (m *Manager) SendMessage(ctx context.Context, channelName, text string) bool {
	const op = "SendMessage"
	ch, ok := m.channelByName(ctx, channelName, op)
	if !ok {
		return false
	}
	return m.logResult(op, m.remote.PostMessage(ctx, ch.ID, text, m.opts.BotName))
}

// Close stops the live connection and observer delivery. Buffered messages
// remain available to GetNewMessages; every other operation fails from now
// on without reconnecting. Close is idempotent.
func (m *Manager) Close() error {
	m.stateMu.Lock()
	m.state = Closed
	s := m.session
	m.session = nil
	m.stateMu.Unlock()

	m.dispatcher.Close()
	if s != nil {
		return s.Close()
	}
	return nil
}
