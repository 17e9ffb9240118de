package manager

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chrisedwards/slackmanager/internal/slack"
)

// fakeTransport fires the configured handshake signals asynchronously.
type fakeTransport struct {
	mu       sync.Mutex
	login    *slack.LoginResponse // nil: login never completes
	delay    time.Duration        // before the login fires
	socket   bool
	hello    bool
	startErr error
	starts   int
	lives    []bool
	closed   int
	handlers slack.Handlers
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func (f *fakeTransport) Start(_ context.Context, h slack.Handlers, live bool) (io.Closer, error) {
	f.mu.Lock()
	f.starts++
	f.lives = append(f.lives, live)
	f.handlers = h
	login, socket, hello, err, delay := f.login, f.socket, f.hello, f.startErr, f.delay
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}

	go func() {
		if login == nil {
			return
		}
		time.Sleep(delay)
		resp := *login
		h.OnLogin(&resp)
		if !resp.OK || !live {
			return
		}
		if socket {
			h.OnSocketOpen()
		}
		if hello {
			h.OnHello()
		}
	}()

	return closerFunc(func() error {
		f.mu.Lock()
		f.closed++
		f.mu.Unlock()
		return nil
	}), nil
}

// push delivers a message the way the live connection would.
func (f *fakeTransport) push(msgs ...slack.RawMessage) {
	f.mu.Lock()
	h := f.handlers
	f.mu.Unlock()
	for _, m := range msgs {
		h.OnMessage(m)
	}
}

func (f *fakeTransport) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *fakeTransport) setLogin(resp *slack.LoginResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.login = resp
}

func (f *fakeTransport) setDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

func (f *fakeTransport) closedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type post struct {
	channelID, text, botName string
}

// fakeRemote is an in-memory workspace.
type fakeRemote struct {
	mu       sync.Mutex
	users    []slack.User
	channels []slack.Channel
	history  map[string][]slack.RawMessage
	oldest   time.Time // last FetchHistory bound
	errs     map[string]error
	posts    []post
	invites  []string // channelID/userID
	removals []string
	created  []string
	deleted  []string
	opened   []string
}

func (r *fakeRemote) err(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errs[op]
}

func (r *fakeRemote) ListUsers(context.Context) ([]slack.User, error) {
	if err := r.err("ListUsers"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]slack.User(nil), r.users...), nil
}

func (r *fakeRemote) ListChannels(context.Context) ([]slack.Channel, error) {
	if err := r.err("ListChannels"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]slack.Channel(nil), r.channels...), nil
}

func (r *fakeRemote) PostMessage(_ context.Context, channelID, text, botName string) error {
	if err := r.err("PostMessage"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts = append(r.posts, post{channelID, text, botName})
	return nil
}

func (r *fakeRemote) FetchHistory(_ context.Context, channelID string, oldest time.Time) ([]slack.RawMessage, error) {
	if err := r.err("FetchHistory"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.oldest = oldest
	return append([]slack.RawMessage(nil), r.history[channelID]...), nil
}

func (r *fakeRemote) InviteUser(_ context.Context, channelID, userID string) error {
	if err := r.err("InviteUser"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invites = append(r.invites, channelID+"/"+userID)
	return nil
}

func (r *fakeRemote) RemoveUser(_ context.Context, channelID, userID string) error {
	if err := r.err("RemoveUser"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removals = append(r.removals, channelID+"/"+userID)
	return nil
}

func (r *fakeRemote) CreateChannel(_ context.Context, name string) (*slack.Channel, error) {
	if err := r.err("CreateChannel"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := slack.Channel{ID: "CNEW" + name, Name: name, IsChannel: true}
	r.channels = append(r.channels, ch)
	r.created = append(r.created, name)
	return &ch, nil
}

func (r *fakeRemote) DeleteChannel(_ context.Context, channelID string) error {
	if err := r.err("DeleteChannel"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, channelID)
	return nil
}

func (r *fakeRemote) OpenDirect(_ context.Context, userID string) (string, error) {
	if err := r.err("OpenDirect"); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = append(r.opened, userID)
	return "D" + userID, nil
}

var errRemote = errors.New("remote_failure")

var (
	testUsers = []slack.User{
		{ID: "U1", Name: "alice"},
		{ID: "U2", Name: "bob"},
		{ID: slack.SlackbotID, Name: "slackbot"},
	}
	testChannels = []slack.Channel{
		{ID: "CA", Name: "alpha", IsChannel: true},
		{ID: "CB", Name: "beta", IsChannel: true},
	}
)

func okLogin() *slack.LoginResponse {
	return &slack.LoginResponse{
		OK:       true,
		Self:     slack.Self{ID: "U000", Name: "manager"},
		Team:     slack.Team{ID: "T1", Name: "Test"},
		Users:    testUsers,
		Channels: testChannels,
	}
}

func failedLogin() *slack.LoginResponse {
	return &slack.LoginResponse{Error: "invalid_auth"}
}

func newFakes() (*fakeRemote, *fakeTransport) {
	remote := &fakeRemote{
		users:    append([]slack.User(nil), testUsers...),
		channels: append([]slack.Channel(nil), testChannels...),
		history:  map[string][]slack.RawMessage{},
		errs:     map[string]error{},
	}
	transport := &fakeTransport{login: okLogin(), socket: true, hello: true}
	return remote, transport
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestManager builds a manager with a short wait bound and its own registry.
func newTestManager(remote Remote, transport Transport, opts Options) (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = 50 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	opts.Registerer = reg
	m := New(remote, transport, opts)
	m.debugging = false
	return m, reg
}
