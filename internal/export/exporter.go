// Package export writes channel history to dated markdown files, one file
// per channel per day.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chrisedwards/slackmanager/internal/manager"
	"github.com/chrisedwards/slackmanager/internal/window"
)

// HistorySource returns a channel's history oldest first.
type HistorySource interface {
	GetMessages(ctx context.Context, channelName string, q manager.HistoryQuery) []manager.Message
}

// Exporter writes one day of history per channel under outputDir/<date>/.
type Exporter struct {
	source    HistorySource
	outputDir string
	loc       *time.Location
	logger    *slog.Logger
}

// Result describes one written file.
type Result struct {
	Channel  string
	Path     string
	Messages int
}

// NewExporter creates an Exporter. Dates are interpreted in loc.
func NewExporter(source HistorySource, outputDir string, loc *time.Location, logger *slog.Logger) (*Exporter, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{source: source, outputDir: outputDir, loc: loc, logger: logger}, nil
}

// OutputDir returns the root directory files are written under.
func (e *Exporter) OutputDir() string {
	return e.outputDir
}

// Export writes the history of each channel for date (YYYY-MM-DD). Channels
// without messages that day get no file.
func (e *Exporter) Export(ctx context.Context, channels []string, date string) ([]Result, error) {
	day, err := window.Day(date, e.loc)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(e.outputDir, date)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var results []Result
	for _, channel := range channels {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		msgs := inWindow(e.source.GetMessages(ctx, channel, manager.HistoryQuery{Since: day.Start}), day)
		if len(msgs) == 0 {
			e.logger.Debug("no messages", "op", "Export", "channel", channel, "date", date)
			continue
		}
		path := filepath.Join(dir, channel+".md")
		if err := os.WriteFile(path, []byte(FormatMarkdown(channel, date, msgs, e.loc)), 0644); err != nil {
			return results, fmt.Errorf("write %s: %w", path, err)
		}
		e.logger.Info("exported", "op", "Export", "channel", channel, "messages", len(msgs), "path", path)
		results = append(results, Result{Channel: channel, Path: path, Messages: len(msgs)})
	}
	return results, nil
}

func inWindow(msgs []manager.Message, w window.Window) []manager.Message {
	out := msgs[:0]
	for _, m := range msgs {
		if w.Contains(m.Time) {
			out = append(out, m)
		}
	}
	return out
}

// FormatMarkdown renders a day of messages as a markdown document.
func FormatMarkdown(channel, date string, msgs []manager.Message, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# #%s, %s\n\n", channel, date)
	for _, m := range msgs {
		star := ""
		if m.IsStarred {
			star = " ⭐"
		}
		text := strings.ReplaceAll(m.Text, "\n", "\n  ")
		fmt.Fprintf(&b, "- **%s** %s%s: %s\n", m.Time.In(loc).Format("15:04"), m.Username, star, text)
	}
	return b.String()
}
