package manager

import (
	"context"
	"slices"
	"time"

	"github.com/chrisedwards/slackmanager/internal/slack"
)

// HistoryQuery narrows a history request. The zero value returns everything.
type HistoryQuery struct {
	// Since keeps messages at or after this time when non-zero.
	Since time.Time
	// MessageID keeps only the message with this ID when non-nil. Slack
	// reports zero for every history message, so this matches nothing but
	// an ID of zero.
	MessageID *int64
}

// GetMessages returns a channel's history, oldest first, with authors and
// mentions resolved against the current member list.
func (m *Manager) GetMessages(ctx context.Context, channelName string, q HistoryQuery) []Message {
	const op = "GetMessages"
	ch, ok := m.channelByName(ctx, channelName, op)
	if !ok {
		return []Message{}
	}

	raw, err := m.remote.FetchHistory(ctx, ch.ID, q.Since)
	if !m.logResult(op, err) {
		return []Message{}
	}
	return buildHistory(raw, q, m.freshDirectory(ctx, op))
}

// freshDirectory fetches the member list, falling back to the login
// snapshot when that fails.
func (m *Manager) freshDirectory(ctx context.Context, op string) *slack.Directory {
	users, err := m.remote.ListUsers(ctx)
	if err != nil {
		m.logger.Warn("using login user snapshot: "+err.Error(), "op", op)
		return m.directory()
	}
	return slack.NewDirectory(users)
}

// buildHistory filters newest-first raw history, normalizes it, and returns
// it oldest first.
func buildHistory(raw []slack.RawMessage, q HistoryQuery, dir *slack.Directory) []Message {
	out := make([]Message, 0, len(raw))
	for _, r := range raw {
		if !q.Since.IsZero() && r.Time().Before(q.Since) {
			continue
		}
		if q.MessageID != nil && r.ID != *q.MessageID {
			continue
		}
		out = append(out, NormalizeMessage(r, dir))
	}
	slices.Reverse(out)
	return out
}
