package manager

import (
	"fmt"
	"time"

	"github.com/chrisedwards/slackmanager/internal/slack"
)

// Message is a normalized channel message. The channel it belongs to is
// fixed at construction.
type Message struct {
	Time      time.Time
	Timestamp string // Slack "ts"; unique and increasing within a channel
	ID        int64  // always zero for messages from Slack

	User             string // author ID
	UsernameOverride string // set for bot-posted messages
	Username         string // resolved display name
	Text             string // body with mentions rewritten to @name
	IsStarred        bool

	channelID string
	rendered  string
}

// NormalizeMessage resolves the author and rewrites mention tokens of raw
// using dir. The starred flag is carried over from the raw record.
func NormalizeMessage(raw slack.RawMessage, dir *slack.Directory) Message {
	return Message{
		Time:             raw.Time(),
		Timestamp:        raw.Timestamp,
		ID:               raw.ID,
		User:             raw.User,
		UsernameOverride: raw.Username,
		Username:         dir.DisplayName(raw.User, raw.Username),
		Text:             dir.Normalize(raw.Text),
		IsStarred:        raw.IsStarred,
		channelID:        raw.Channel,
	}
}

// ChannelID returns the ID of the channel the message was posted in.
func (m Message) ChannelID() string { return m.channelID }

// SetRendered overrides the String form. An empty value restores the default.
func (m *Message) SetRendered(s string) { m.rendered = s }

// String renders "[time]: @author (name): text" unless overridden.
func (m Message) String() string {
	if m.rendered != "" {
		return m.rendered
	}
	return fmt.Sprintf("[%s]: @%s (%s): %s", m.Time.Format(time.DateTime), m.User, m.Username, m.Text)
}
