package manager

import "github.com/prometheus/client_golang/prometheus"

const namespace = "slackmanager"

type metrics struct {
	handshakes     *prometheus.CounterVec
	signalTimeouts *prometheus.CounterVec
	remoteCalls    *prometheus.CounterVec
	buffered       prometheus.Gauge
	pushed         prometheus.Counter
	dropped        prometheus.Counter
}

// newMetrics creates the manager's collectors and registers them on reg
// when it is non-nil.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_total",
			Help:      "Handshake attempts by result.",
		}, []string{"result"}),
		signalTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshake_signal_timeouts_total",
			Help:      "Handshake signals that did not arrive within the wait bound.",
		}, []string{"signal"}),
		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_calls_total",
			Help:      "Slack API calls by operation and result.",
		}, []string{"op", "result"}),
		buffered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffered_messages",
			Help:      "Pushed messages waiting to be drained.",
		}),
		pushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pushed_messages_total",
			Help:      "Messages received over the live connection.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "New-message notifications dropped because the observer queue was full.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.handshakes, m.signalTimeouts, m.remoteCalls, m.buffered, m.pushed, m.dropped)
	}
	return m
}
