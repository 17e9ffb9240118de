package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chrisedwards/slackmanager/internal/channels"
	"github.com/chrisedwards/slackmanager/internal/config"
	"github.com/chrisedwards/slackmanager/internal/manager"
	"github.com/chrisedwards/slackmanager/internal/slack"
	"github.com/chrisedwards/slackmanager/internal/window"
)

var (
	historySince string
	historyDate  string
	configForce  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := cmd.OutOrStdout()
		file := cfg.ConfigFile()
		if file == "" {
			file = "(defaults and environment only)"
		}
		printField(w, "config file", file)
		printField(w, "bot token", slack.Masked(cfg.BotToken))
		printField(w, "app token", slack.Masked(cfg.AppToken))
		printField(w, "bot name", cfg.BotName)
		printField(w, "handshake timeout", cfg.HandshakeTimeout)
		printField(w, "unbounded wait", cfg.UnboundedWait)
		printField(w, "history limit", cfg.HistoryLimit)
		printField(w, "notify queue size", cfg.NotifyQueueSize)
		printField(w, "refresh after create", cfg.RefreshAfterCreate)
		printField(w, "timezone", cfg.Timezone)
		printField(w, "include", formatPatterns(cfg.Include))
		printField(w, "exclude", formatPatterns(cfg.Exclude))
		printField(w, "output dir", cfg.OutputDir)
		printField(w, "log level", cfg.LogLevel)
		if err := cfg.Validate(); err != nil {
			printField(w, "status", "invalid: "+err.Error())
		} else {
			printField(w, "status", "ok")
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to the config file",
	Long: `Write the effective configuration (defaults, existing file and
environment) to the file named by --config, or to the default location.
An existing file is only replaced with --force.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var channelsCmd = &cobra.Command{
	Use:   "channels [patterns...]",
	Short: "List channels, optionally only those matching glob patterns",
	Long: `List channel names and IDs. Patterns are globs matched against
channel names or IDs, case-insensitively.`,
	Args: cobra.ArbitraryArgs,
	RunE: withManager(func(ctx context.Context, cmd *cobra.Command, m *manager.Manager, args []string) error {
		all := m.Channels(ctx)
		if !m.IsConnected() {
			return manager.ErrNotConnected
		}
		selected := channels.NewFilter(args, nil).Apply(all)
		slices.SortFunc(selected, func(a, b slack.Channel) int { return strings.Compare(a.Name, b.Name) })
		for _, ch := range selected {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", ch.Name, ch.ID)
		}
		return nil
	}),
}

var usersCmd = &cobra.Command{
	Use:   "users [prefix]",
	Short: "List user names, optionally only those starting with prefix",
	Args:  cobra.MaximumNArgs(1),
	RunE: withManager(func(ctx context.Context, cmd *cobra.Command, m *manager.Manager, args []string) error {
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		names := m.Users(ctx, prefix)
		if !m.IsConnected() {
			return manager.ErrNotConnected
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	}),
}

var sendCmd = &cobra.Command{
	Use:   "send <channel> <text...>",
	Short: "Post a message to a channel",
	Args:  cobra.MinimumNArgs(2),
	RunE: withManager(func(ctx context.Context, _ *cobra.Command, m *manager.Manager, args []string) error {
		channel, text := args[0], strings.Join(args[1:], " ")
		if !m.SendMessage(ctx, channel, text) {
			return failure(m, "send to", channel)
		}
		return nil
	}),
}

var dmCmd = &cobra.Command{
	Use:   "dm <user> <text...>",
	Short: "Send a direct message to a user",
	Args:  cobra.MinimumNArgs(2),
	RunE: withManager(func(ctx context.Context, _ *cobra.Command, m *manager.Manager, args []string) error {
		user, text := args[0], strings.Join(args[1:], " ")
		if !m.SendMessageToUser(ctx, user, text) {
			return failure(m, "direct message", user)
		}
		return nil
	}),
}

var historyCmd = &cobra.Command{
	Use:   "history <channel>",
	Short: "Print a channel's recent history, oldest first",
	Long: `Print a channel's recent history, oldest first.

--since accepts a duration ("2h", "30m") counted back from now, or an
RFC 3339 time. --date restricts output to one calendar day in the
configured timezone.`,
	Args: cobra.ExactArgs(1),
	RunE: withManager(func(ctx context.Context, cmd *cobra.Command, m *manager.Manager, args []string) error {
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		q, day, err := historyQuery(historySince, historyDate, time.Now(), loc)
		if err != nil {
			return err
		}
		if err := requireChannel(ctx, m, args[0]); err != nil {
			return err
		}

		msgs := m.GetMessages(ctx, args[0], q)
		if day != nil {
			msgs = slices.DeleteFunc(msgs, func(msg manager.Message) bool { return !day.Contains(msg.Time) })
		}
		printMessages(cmd.OutOrStdout(), msgs, "", loc)
		return nil
	}),
}

var createChannelCmd = &cobra.Command{
	Use:   "create-channel <name> [users...]",
	Short: "Create a channel and invite users to it",
	Args:  cobra.MinimumNArgs(1),
	RunE: withManager(func(ctx context.Context, _ *cobra.Command, m *manager.Manager, args []string) error {
		if !m.CreateChannel(ctx, args[0], args[1:]) {
			return failure(m, "create channel", args[0])
		}
		return nil
	}),
}

var closeChannelCmd = &cobra.Command{
	Use:   "close-channel <name>",
	Short: "Archive a channel",
	Args:  cobra.ExactArgs(1),
	RunE: withManager(func(ctx context.Context, _ *cobra.Command, m *manager.Manager, args []string) error {
		if !m.CloseChannel(ctx, args[0]) {
			return failure(m, "close channel", args[0])
		}
		return nil
	}),
}

var inviteCmd = &cobra.Command{
	Use:   "invite <channel> <user>",
	Short: "Add a user to a channel",
	Args:  cobra.ExactArgs(2),
	RunE: withManager(func(ctx context.Context, _ *cobra.Command, m *manager.Manager, args []string) error {
		if err := requireUser(ctx, m, args[1]); err != nil {
			return err
		}
		if !m.AddUserToChannel(ctx, args[0], args[1]) {
			return fmt.Errorf("%w: %s", manager.ErrChannelNotFound, args[0])
		}
		return nil
	}),
}

var kickCmd = &cobra.Command{
	Use:   "kick <channel> <user>",
	Short: "Remove a user from a channel",
	Args:  cobra.ExactArgs(2),
	RunE: withManager(func(ctx context.Context, _ *cobra.Command, m *manager.Manager, args []string) error {
		if err := requireUser(ctx, m, args[1]); err != nil {
			return err
		}
		if !m.RemoveUserFromChannel(ctx, args[0], args[1]) {
			return fmt.Errorf("%w: %s", manager.ErrChannelNotFound, args[0])
		}
		return nil
	}),
}

func init() {
	historyCmd.Flags().StringVar(&historySince, "since", "", "only messages at or after this duration ago or RFC 3339 time")
	historyCmd.Flags().StringVar(&historyDate, "date", "", "only messages on this day (YYYY-MM-DD, configured timezone)")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd, channelsCmd, usersCmd, sendCmd, dmCmd, historyCmd,
		watchCmd, exportCmd, createChannelCmd, closeChannelCmd, inviteCmd, kickCmd)
}

type managerRunE func(ctx context.Context, cmd *cobra.Command, m *manager.Manager, args []string) error

// withManager runs fn with a login-only manager that is closed afterwards.
func withManager(fn managerRunE) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		m, err := newManager(nil, false)
		if err != nil {
			return err
		}
		defer m.Close()
		return fn(cmd.Context(), cmd, m, args)
	}
}

// failure explains a false result from the manager. Details are in the log.
func failure(m *manager.Manager, action, target string) error {
	if !m.IsConnected() {
		return fmt.Errorf("%s %s: %w", action, target, manager.ErrNotConnected)
	}
	return fmt.Errorf("%s %s failed", action, target)
}

func requireChannel(ctx context.Context, m *manager.Manager, name string) error {
	names := m.ChannelNames(ctx)
	if !m.IsConnected() {
		return manager.ErrNotConnected
	}
	if !slices.Contains(names, name) {
		return fmt.Errorf("%w: %s", manager.ErrChannelNotFound, name)
	}
	return nil
}

func requireUser(ctx context.Context, m *manager.Manager, name string) error {
	names := m.Users(ctx, name)
	if !m.IsConnected() {
		return manager.ErrNotConnected
	}
	if !slices.Contains(names, name) {
		return fmt.Errorf("%w: %s", manager.ErrUserNotFound, name)
	}
	return nil
}

// historyQuery builds the query for the history flags. When date is set the
// returned window bounds the result from above as well.
func historyQuery(since, date string, now time.Time, loc *time.Location) (manager.HistoryQuery, *window.Window, error) {
	var q manager.HistoryQuery
	if since != "" && date != "" {
		return q, nil, errors.New("--since and --date are mutually exclusive")
	}
	if since != "" {
		t, err := parseSince(since, now)
		if err != nil {
			return q, nil, err
		}
		q.Since = t
	}
	if date != "" {
		w, err := window.Day(date, loc)
		if err != nil {
			return q, nil, err
		}
		q.Since = w.Start
		return q, &w, nil
	}
	return q, nil, nil
}

func parseSince(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("invalid --since %q: duration must be positive", s)
		}
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: want a duration or RFC 3339 time", s)
	}
	return t, nil
}
