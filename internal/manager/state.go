package manager

import "context"

// State is the connection state of a Manager.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	// Closed is terminal: Close was called.
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state
}

// IsConnected reports whether the last handshake succeeded and has not been
// invalidated since.
func (m *Manager) IsConnected() bool {
	return m.State() == Connected
}

// setState never leaves Closed.
func (m *Manager) setState(s State) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	if m.state != Closed {
		m.state = s
	}
}

// Invalidate marks the connection stale so the next gated operation
// performs a fresh handshake. The live connection keeps running until then.
func (m *Manager) Invalidate() {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	if m.state == Connected {
		m.state = Disconnected
	}
}

// ensureConnected is the lazy gate in front of every remote operation: at
// most one handshake attempt per call, none once the manager is closed.
func (m *Manager) ensureConnected(ctx context.Context, op string) bool {
	switch m.State() {
	case Connected:
		return true
	case Closed:
		m.logger.Warn("manager closed", "op", op)
		return false
	}
	m.connectMu.Lock()
	defer m.connectMu.Unlock()
	switch m.State() {
	case Connected:
		return true
	case Closed:
		m.logger.Warn("manager closed", "op", op)
		return false
	}
	if err := m.connect(ctx, connectOptions{live: m.opts.live()}); err != nil {
		m.logger.Warn("not connected", "op", op, "error", err)
		return false
	}
	return m.IsConnected()
}
