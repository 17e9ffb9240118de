package manager

import (
	"sync"
	"time"
)

// Signal is a one-shot completion slot. Proceed may be called any number of
// times from any goroutine; only the first call has an effect.
type Signal struct {
	name string
	once sync.Once
	done chan struct{}
}

// NewSignal creates an unfired signal. The name is used in diagnostics.
func NewSignal(name string) *Signal {
	return &Signal{name: name, done: make(chan struct{})}
}

// Name returns the diagnostic name.
func (s *Signal) Name() string { return s.name }

// Proceed marks the signal as fired.
func (s *Signal) Proceed() {
	s.once.Do(func() { close(s.done) })
}

// Fired reports whether Proceed has been called.
func (s *Signal) Fired() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the signal fires or timeout elapses, returning false on
// timeout. A timeout <= 0 waits forever.
func (s *Signal) Wait(timeout time.Duration) bool {
	if timeout <= 0 {
		<-s.done
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.done:
		return true
	case <-timer.C:
		return false
	}
}

// Barrier joins several signals. Each signal gets its own wait bound, in
// order, so the worst case is len(signals) * timeout.
type Barrier struct {
	signals []*Signal
}

// NewBarrier creates a barrier over the given signals.
func NewBarrier(signals ...*Signal) *Barrier {
	return &Barrier{signals: signals}
}

// Wait waits on every signal and returns the ones that did not fire within
// their bound. A timed-out signal is abandoned, not retried.
func (b *Barrier) Wait(timeout time.Duration) []*Signal {
	var missed []*Signal
	for _, s := range b.signals {
		if !s.Wait(timeout) {
			missed = append(missed, s)
		}
	}
	return missed
}
