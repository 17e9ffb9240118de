package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chrisedwards/slackmanager/internal/channels"
	"github.com/chrisedwards/slackmanager/internal/export"
	"github.com/chrisedwards/slackmanager/internal/manager"
	"github.com/chrisedwards/slackmanager/internal/window"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export [date]",
	Short: "Write a day of channel history to dated markdown files",
	Long: `Write one day of history for each selected channel to
<output_dir>/<date>/<channel>.md.

The date is YYYY-MM-DD in the configured timezone and defaults to today.
Channels are selected with the configured include and exclude patterns,
matched against channel names or IDs.
Only the most recent history_limit messages of each channel are examined.`,
	Args: cobra.MaximumNArgs(1),
	RunE: withManager(func(ctx context.Context, cmd *cobra.Command, m *manager.Manager, args []string) error {
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		date := window.Today(time.Now(), loc).Start.In(loc).Format(window.DateLayout)
		if len(args) == 1 {
			if _, err := window.Day(args[0], loc); err != nil {
				return err
			}
			date = args[0]
		}
		out := exportOutput
		if out == "" {
			out = cfg.OutputDir
		}

		all := m.Channels(ctx)
		if !m.IsConnected() {
			return manager.ErrNotConnected
		}
		selected, _ := channelNames(channels.NewFilter(cfg.Include, cfg.Exclude).Apply(all))

		e, err := export.NewExporter(m, out, loc, logger)
		if err != nil {
			return err
		}
		results, err := e.Export(ctx, selected, date)
		for _, r := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d messages\n", r.Path, r.Messages)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d of %d channels written under %s\n", len(results), len(selected), e.OutputDir())
		return err
	}),
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output directory (default from config)")
}
