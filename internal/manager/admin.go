package manager

import (
	"context"
	"strings"

	"github.com/chrisedwards/slackmanager/internal/slack"
)

// ChannelNames returns the channel names from the login snapshot.
func (m *Manager) ChannelNames(ctx context.Context) []string {
	chs := m.channels(ctx, "ChannelNames")
	names := make([]string, 0, len(chs))
	for _, ch := range chs {
		names = append(names, ch.Name)
	}
	return names
}

// Channels returns the channels of the login snapshot, names and IDs.
func (m *Manager) Channels(ctx context.Context) []slack.Channel {
	return m.channels(ctx, "Channels")
}

func (m *Manager) channels(ctx context.Context, op string) []slack.Channel {
	if !m.ensureConnected(ctx, op) {
		return []slack.Channel{}
	}
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	return append([]slack.Channel{}, m.snap.channels...)
}

// Users returns the names of all members, optionally only those starting
// with prefix.
func (m *Manager) Users(ctx context.Context, prefix string) []string {
	const op = "Users"
	if !m.ensureConnected(ctx, op) {
		return []string{}
	}
	users, err := m.remote.ListUsers(ctx)
	if !m.logResult(op, err) {
		return []string{}
	}
	names := make([]string, 0, len(users))
	for _, u := range users {
		if strings.HasPrefix(u.Name, prefix) {
			names = append(names, u.Name)
		}
	}
	return names
}

// SendMessageToUser posts text in the direct-message channel with the named
// user, opening it on first use.
func (m *Manager) SendMessageToUser(ctx context.Context, userName, text string) bool {
	const op = "SendMessageToUser"
	if !m.ensureConnected(ctx, op) {
		return false
	}

	channelID, ok := m.dms.Get(userName)
	if !ok {
		users, err := m.remote.ListUsers(ctx)
		if !m.logResult(op, err) {
			return false
		}
		idx := -1
		for i, u := range users {
			if u.Name == userName {
				idx = i
				break
			}
		}
		if idx < 0 {
			m.logger.Warn(userName+" - user not found", "op", op)
			return false
		}
		channelID, err = m.remote.OpenDirect(ctx, users[idx].ID)
		if !m.logResult(op, err) {
			return false
		}
		m.dms.Set(userName, channelID)
		m.logger.Debug("opened direct channel", "op", op, "user", userName, "cached", m.dms.Len())
	}

	return m.logResult(op, m.remote.PostMessage(ctx, channelID, text, m.opts.BotName))
}

// CreateChannel creates a channel and invites the named users. Invitation
// failures are logged and do not affect the result.
func (m *Manager) CreateChannel(ctx context.Context, channelName string, userNames []string) bool {
	const op = "CreateChannel"
	if !m.ensureConnected(ctx, op) {
		return false
	}
	ch, err := m.remote.CreateChannel(ctx, channelName)
	if !m.logResult(op, err) {
		return false
	}

	m.snapMu.Lock()
	m.snap.channels = append(m.snap.channels, *ch)
	m.snapMu.Unlock()

	for _, name := range userNames {
		m.changeMembership(ctx, *ch, name, op, false)
	}

	if m.opts.RefreshAfterCreate {
		m.Invalidate()
	}
	return true
}

// CloseChannel archives the named channel. The name is resolved against a
// fresh channel list rather than the snapshot.
func (m *Manager) CloseChannel(ctx context.Context, channelName string) bool {
	const op = "CloseChannel"
	if !m.ensureConnected(ctx, op) {
		return false
	}
	channels, err := m.remote.ListChannels(ctx)
	if !m.logResult(op, err) {
		return false
	}
	for _, ch := range channels {
		if ch.Name == channelName {
			return m.logResult(op, m.remote.DeleteChannel(ctx, ch.ID))
		}
	}
	m.logger.Warn(channelName+" - channel not found", "op", op)
	return false
}

// AddUserToChannel invites the named user. It reports whether the channel
// was found; the invitation outcome is only logged.
func (m *Manager) AddUserToChannel(ctx context.Context, channelName, userName string) bool {
	const op = "AddUserToChannel"
	ch, ok := m.channelByName(ctx, channelName, op)
	if !ok {
		return false
	}
	m.changeMembership(ctx, ch, userName, op, false)
	return true
}

// RemoveUserFromChannel removes the named user. It reports whether the
// channel was found; the removal outcome is only logged.
func (m *Manager) RemoveUserFromChannel(ctx context.Context, channelName, userName string) bool {
	const op = "RemoveUserFromChannel"
	ch, ok := m.channelByName(ctx, channelName, op)
	if !ok {
		return false
	}
	m.changeMembership(ctx, ch, userName, op, true)
	return true
}

func (m *Manager) changeMembership(ctx context.Context, ch slack.Channel, userName, op string, remove bool) bool {
	user, ok := m.lookupUser(userName)
	if !ok {
		m.logger.Warn("User not found - "+userName, "op", op)
		return false
	}
	if user.IsSlackbot() {
		m.logger.Warn("User is SlackBot - "+userName, "op", op)
		return false
	}
	if remove {
		return m.logResult(op, m.remote.RemoveUser(ctx, ch.ID, user.ID))
	}
	return m.logResult(op, m.remote.InviteUser(ctx, ch.ID, user.ID))
}
