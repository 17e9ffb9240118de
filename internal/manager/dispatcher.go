package manager

import (
	"log/slog"
	"sync"
)

// Observer is notified of every pushed message.
type Observer func(Message)

type subscription struct {
	id uint64
	fn Observer
}

// dispatcher decouples the transport's delivery goroutine from observers:
// Publish only enqueues, a separate goroutine calls the observers in
// subscription order.
type dispatcher struct {
	queue  chan Message
	done   chan struct{}
	stop   sync.Once
	wg     sync.WaitGroup
	logger *slog.Logger
	onDrop func()

	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
}

func newDispatcher(size int, logger *slog.Logger, onDrop func()) *dispatcher {
	if size <= 0 {
		size = DefaultNotifyQueueSize
	}
	d := &dispatcher{
		queue:  make(chan Message, size),
		done:   make(chan struct{}),
		logger: logger,
		onDrop: onDrop,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Subscribe registers fn and returns a function that removes it.
func (d *dispatcher) Subscribe(fn Observer) func() {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.subs = append(d.subs, subscription{id: id, fn: fn})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			for i, s := range d.subs {
				if s.id == id {
					d.subs = append(d.subs[:i:i], d.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish enqueues m without blocking. It reports false when the queue is
// full or the dispatcher is closed; the notification is then lost.
func (d *dispatcher) Publish(m Message) bool {
	select {
	case <-d.done:
		return false
	default:
	}
	select {
	case d.queue <- m:
		return true
	default:
		if d.onDrop != nil {
			d.onDrop()
		}
		return false
	}
}

func (d *dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case m := <-d.queue:
			d.deliver(m)
		}
	}
}

func (d *dispatcher) deliver(m Message) {
	d.mu.RLock()
	subs := make([]subscription, len(d.subs))
	copy(subs, d.subs)
	d.mu.RUnlock()

	for _, s := range subs {
		d.call(s.fn, m)
	}
}

func (d *dispatcher) call(fn Observer, m Message) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("observer panicked", "op", "OnNewMessage", "panic", r)
		}
	}()
	fn(m)
}

// Close stops delivery and waits for the in-flight notification, if any.
func (d *dispatcher) Close() {
	d.stop.Do(func() { close(d.done) })
	d.wg.Wait()
}
