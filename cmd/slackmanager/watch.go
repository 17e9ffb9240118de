package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/chrisedwards/slackmanager/internal/channels"
	"github.com/chrisedwards/slackmanager/internal/manager"
	"github.com/chrisedwards/slackmanager/internal/slack"
)

const watchPollInterval = 2 * time.Second

var (
	watchMetricsAddr string
	watchExclude     []string
)

var watchCmd = &cobra.Command{
	Use:   "watch [patterns...]",
	Short: "Print new messages as they are posted",
	Long: `Print new messages as they are posted to the selected channels.

Channels are selected with glob patterns matched against channel names
or IDs, case-insensitively. Patterns given as arguments replace the configured
include list; --exclude adds to the configured exclude list. With no
patterns every channel the bot can see is watched.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	watchCmd.Flags().StringSliceVar(&watchExclude, "exclude", nil, "glob patterns of channels to skip")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	include := cfg.Include
	if len(args) > 0 {
		include = args
	}
	filter := channels.NewFilter(include, append(slices.Clone(cfg.Exclude), watchExclude...))

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m, err := newManager(reg, true)
	if err != nil {
		return err
	}
	defer m.Close()

	addr := watchMetricsAddr
	if addr == "" {
		addr = cfg.MetricsAddr
	}
	if addr != "" {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		stop := serveMetrics(addr, newMetricsRouter(reg, m))
		defer stop()
	}

	if err := m.Connect(ctx); err != nil {
		return err
	}

	selected := filter.Apply(m.Channels(ctx))
	if len(selected) == 0 {
		return fmt.Errorf("no channels match include %s exclude %s",
			formatPatterns(filter.Include()), formatPatterns(filter.Exclude()))
	}
	self, team := m.Identity()
	logger.Info("watching", "op", "watch", "team", team.Name, "user", self.Name,
		"channels", len(selected), "all", filter.Empty())
	names, byID := channelNames(selected)

	// Observers only wake the printer; draining keeps each message printed once.
	wake := make(chan struct{}, 1)
	unsubscribe := m.Subscribe(func(manager.Message) {
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-wake:
		case <-ticker.C:
		}
		for _, msg := range m.GetNewMessages(names) {
			msg.SetRendered(renderMessage(msg, byID[msg.ChannelID()], loc))
			fmt.Fprintln(cmd.OutOrStdout(), msg.String())
		}
	}
}

// channelNames returns the names of chs and a map from ID to name for
// display.
func channelNames(chs []slack.Channel) ([]string, map[string]string) {
	names := make([]string, 0, len(chs))
	byID := make(map[string]string, len(chs))
	for _, ch := range chs {
		names = append(names, ch.Name)
		byID[ch.ID] = ch.Name
	}
	return names, byID
}

// stateReporter is the part of the manager the health endpoint needs.
type stateReporter interface {
	State() manager.State
	Buffered() int
}

// newMetricsRouter serves Prometheus metrics and a health check that fails
// while the manager is not connected.
func newMetricsRouter(reg *prometheus.Registry, m stateReporter) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		state := m.State()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if state != manager.Connected {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		fmt.Fprintf(w, "%s buffered=%d\n", state, m.Buffered())
	})
	return r
}

// serveMetrics serves h on addr until the returned function is called.
func serveMetrics(addr string, h http.Handler) func() {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics server listening", "op", "watch", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "op", "watch", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
