package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/chrisedwards/slackmanager/internal/manager"
)

var (
	mutedColor  = lipgloss.Color("245")
	accentColor = lipgloss.Color("39")

	timeStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	channelStyle = lipgloss.NewStyle().Foreground(accentColor)
	authorStyle  = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(mutedColor).Width(22)
	starStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

// renderMessage formats a message as "[time] #channel author: text". The
// channel is omitted when empty.
func renderMessage(msg manager.Message, channel string, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(timeStyle.Render("[" + msg.Time.In(loc).Format(time.DateTime) + "]"))
	b.WriteByte(' ')
	if channel != "" {
		b.WriteString(channelStyle.Render("#" + channel))
		b.WriteByte(' ')
	}
	if msg.IsStarred {
		b.WriteString(starStyle.Render("*"))
	}
	b.WriteString(authorStyle.Render(msg.Username))
	b.WriteString(": ")
	b.WriteString(msg.Text)
	return b.String()
}

// printMessages renders msgs one per line, storing the rendering on each.
func printMessages(w io.Writer, msgs []manager.Message, channel string, loc *time.Location) {
	for i := range msgs {
		msgs[i].SetRendered(renderMessage(msgs[i], channel, loc))
		fmt.Fprintln(w, msgs[i].String())
	}
}

// printField writes an aligned "label value" line.
func printField(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "%s %v\n", labelStyle.Render(label+":"), value)
}

// formatPatterns formats a list of patterns for display.
func formatPatterns(patterns []string) string {
	if len(patterns) == 0 {
		return "(none)"
	}
	return "[" + strings.Join(patterns, ", ") + "]"
}
