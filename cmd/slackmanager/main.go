package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/chrisedwards/slackmanager/internal/config"
	"github.com/chrisedwards/slackmanager/internal/manager"
	"github.com/chrisedwards/slackmanager/internal/slack"
)

// Version information, injected at build time via ldflags.
var (
	Version   = "dev"
	Build     = "unknown"
	BuildTime = "unknown"
)

var (
	configPath string
	envFile    string
	verbose    bool
	loginOnly  bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "slackmanager",
	Short: "Read, post and administer Slack channels from the command line",
	Long: `slackmanager talks to a Slack workspace as a bot.

It logs in, optionally opens a Socket Mode connection to receive new messages
as they are posted, and exposes channel history, posting and channel
administration as simple commands. Configuration is read from a YAML file
and SLACKMANAGER_* environment variables.`,
	Version:           fmt.Sprintf("%s (build %s, %s)", Version, Build, BuildTime),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.config/slackmanager/slackmanager.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading config (default .env if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
	rootCmd.PersistentFlags().BoolVar(&loginOnly, "login-only", false, "skip the Socket Mode connection")
}

// setup loads configuration and installs the logger for every subcommand.
func setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnvFile(envFile, envFile != ""); err != nil {
		return err
	}
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = c

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// newManager builds a manager over the configured Slack client. Metrics are
// registered on reg when it is non-nil.
func newManager(reg prometheus.Registerer, needLive bool) (*manager.Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	creds := cfg.Credentials()
	if needLive && !loginOnly && !creds.HasRealtime() {
		return nil, fmt.Errorf("app_token is required to receive new messages: %w", slack.ErrNoAppToken)
	}

	client := slack.NewClient(creds).
		WithLogger(logger).
		WithHistoryLimit(cfg.HistoryLimit)
	if cfg.APIURL != "" {
		client = client.WithBaseURL(cfg.APIURL)
	}

	return manager.New(client, client, manager.Options{
		BotName:            cfg.BotName,
		HandshakeTimeout:   cfg.HandshakeTimeout,
		UnboundedWait:      cfg.UnboundedWait,
		LoginOnly:          loginOnly || !needLive || !creds.HasRealtime(),
		NotifyQueueSize:    cfg.NotifyQueueSize,
		RefreshAfterCreate: cfg.RefreshAfterCreate,
		Logger:             logger,
		Registerer:         reg,
	}), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
