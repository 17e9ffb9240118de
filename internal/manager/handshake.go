package manager

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/chrisedwards/slackmanager/internal/slack"
)

// Signal labels used in logs and metrics.
const (
	signalLogin      = "login"
	signalSocketOpen = "socket_open"
	signalHello      = "hello"
)

// ConnectOption customizes a single Connect call.
type ConnectOption func(*connectOptions)

type connectOptions struct {
	syncID string
	live   bool
}

// WithSyncID names the handshake in diagnostics. A random ID is used otherwise.
func WithSyncID(id string) ConnectOption {
	return func(o *connectOptions) { o.syncID = id }
}

// WithoutSocket logs in without opening the live connection. Pushed
// messages are not received until a later Connect opens it.
func WithoutSocket() ConnectOption {
	return func(o *connectOptions) { o.live = false }
}

// Connect performs a handshake and blocks until it reaches a terminal state.
// On failure the manager stays disconnected and the error says why.
func (m *Manager) Connect(ctx context.Context, opts ...ConnectOption) error {
	co := connectOptions{live: m.opts.live()}
	for _, opt := range opts {
		opt(&co)
	}
	m.connectMu.Lock()
	defer m.connectMu.Unlock()
	return m.connect(ctx, co)
}

// connect must be called with connectMu held.
func (m *Manager) connect(ctx context.Context, co connectOptions) error {
	if m.State() == Closed {
		return ErrClosed
	}
	m.dms.Clear()
	m.setState(Connecting)
	if old := m.swapSession(nil); old != nil {
		_ = old.Close()
	}

	resp, session, err := m.handshake(ctx, co)
	if err != nil {
		m.setState(Disconnected)
		m.metrics.handshakes.WithLabelValues("failed").Inc()
		m.logger.Warn(err.Error(), "op", "Connect")
		return err
	}

	if !m.adoptSession(session) {
		_ = session.Close()
		m.logger.Warn("closed during handshake", "op", "Connect")
		return ErrClosed
	}
	m.metrics.handshakes.WithLabelValues("ok").Inc()
	m.logger.Info("OK", "op", "Connect",
		"team", resp.Team.Name,
		"user", resp.Self.Name,
		"users", m.directory().Len(),
		"channels", len(resp.Channels),
		"live", co.live)
	return nil
}

// handshake starts a session and joins its three signals. A failed login
// releases the socket-open and hello signals, which can no longer fire.
// Only the login response decides the outcome. A login that arrives after
// the attempt was given up is ignored.
func (m *Manager) handshake(ctx context.Context, co connectOptions) (*slack.LoginResponse, io.Closer, error) {
	syncID := co.syncID
	if syncID == "" {
		syncID = uuid.NewString()
	}
	gen := m.beginAttempt()
	login := NewSignal(syncID + " - login callback")
	socket := NewSignal(syncID + " - socket open callback")
	hello := NewSignal(syncID + " - hello callback")
	labels := map[*Signal]string{login: signalLogin, socket: signalSocketOpen, hello: signalHello}

	if !co.live {
		socket.Proceed()
		hello.Proceed()
	}

	// resp is guarded by snapMu so that recording it and abandoning the
	// attempt exclude each other.
	var resp *slack.LoginResponse
	handlers := slack.Handlers{
		OnLogin: func(r *slack.LoginResponse) {
			if r == nil {
				r = &slack.LoginResponse{Error: "empty login response"}
			}
			m.snapMu.Lock()
			current := m.attempt == gen
			if current {
				resp = r
				if r.OK {
					m.snap = newSnapshot(r)
				}
			}
			m.snapMu.Unlock()
			if !current {
				m.logger.Warn("login arrived after the handshake gave up", "op", "Connect", "sync_id", syncID)
				return
			}
			login.Proceed()
			if !r.OK {
				socket.Proceed()
				hello.Proceed()
			}
		},
		OnSocketOpen: socket.Proceed,
		OnHello:      hello.Proceed,
		OnMessage:    m.onPush,
	}

	session, err := m.transport.Start(ctx, handlers, co.live)
	if err != nil {
		return nil, nil, fmt.Errorf("start session: %w", err)
	}

	for _, s := range NewBarrier(login, socket, hello).Wait(m.waitBound()) {
		m.metrics.signalTimeouts.WithLabelValues(labels[s]).Inc()
		m.logger.Warn(fmt.Sprintf("took too long to do '%s'", s.Name()), "op", "Connect", "signal", labels[s])
	}

	m.snapMu.Lock()
	r := resp
	if r == nil || !r.OK {
		m.attempt++
	}
	m.snapMu.Unlock()
	switch {
	case r == nil:
		_ = session.Close()
		return nil, nil, ErrLoginTimeout
	case !r.OK:
		_ = session.Close()
		return r, nil, &LoginError{Reason: r.Error}
	}
	if co.live && !hello.Fired() {
		m.logger.Warn("logged in without a confirmed live connection; pushed messages may be missed",
			"op", "Connect", "sync_id", syncID)
	}
	return r, session, nil
}

// waitBound is the per-signal wait; zero means unbounded.
func (m *Manager) waitBound() time.Duration {
	if m.opts.UnboundedWait || m.debugging {
		return 0
	}
	return m.opts.HandshakeTimeout
}

// beginAttempt starts a new handshake generation. Logins from earlier
// generations are discarded.
func (m *Manager) beginAttempt() uint64 {
	m.snapMu.Lock()
	defer m.snapMu.Unlock()
	m.attempt++
	return m.attempt
}

// adoptSession makes s the live session unless the manager was closed.
func (m *Manager) adoptSession(s io.Closer) bool {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	if m.state == Closed {
		return false
	}
	m.session = s
	m.state = Connected
	return true
}

func (m *Manager) swapSession(s io.Closer) io.Closer {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	old := m.session
	m.session = s
	return old
}
