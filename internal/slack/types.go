package slack

import "time"

// Channel represents a Slack conversation known to the workspace snapshot.
type Channel struct {
	ID         string // Channel ID (C..., D..., G...)
	Name       string // Human-readable name
	IsChannel  bool   // Public channel
	IsPrivate  bool   // Private flag
	IsIM       bool   // Direct message
	IsArchived bool   // Archived flag
	IsMember   bool   // Caller is a member
}

// User is a workspace member.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RealName string `json:"real_name,omitempty"`
	IsBot    bool   `json:"is_bot,omitempty"`
	Deleted  bool   `json:"deleted,omitempty"`
}

// SlackbotID is the fixed user ID of the built-in Slackbot.
const SlackbotID = "USLACKBOT"

// IsSlackbot reports whether the user is a bot that cannot be invited to or
// removed from channels.
func (u User) IsSlackbot() bool {
	return u.IsBot || u.ID == SlackbotID
}

// Self represents the authenticated identity.
type Self struct {
	ID     string
	Name   string
	BotID  string
	TeamID string
}

// Team represents a Slack workspace.
type Team struct {
	ID   string
	Name string
	URL  string
}

// LoginResponse is delivered by the login signal of a handshake.
// OK is the only field that decides whether the handshake succeeded.
type LoginResponse struct {
	OK       bool
	Error    string
	Self     Self
	Team     Team
	Users    []User
	Channels []Channel
}

// RawMessage is a message record as received from Slack, before
// author and mention resolution.
type RawMessage struct {
	// ID is documented by the history API but always reported as zero.
	ID        int64
	Channel   string
	User      string
	Username  string // override name, set for bot-posted messages
	Text      string
	Timestamp string // Slack "ts", e.g. "1737676900.123456"
	IsStarred bool
}

// Time returns the parsed Slack timestamp, or the zero time if it is malformed.
func (m RawMessage) Time() time.Time {
	t, err := ParseTimestamp(m.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Handlers receives the asynchronous signals of a realtime session.
// Nil handlers are ignored.
type Handlers struct {
	OnLogin      func(*LoginResponse)
	OnSocketOpen func()
	OnHello      func()
	OnMessage    func(RawMessage)
}

func (h Handlers) login(resp *LoginResponse) {
	if h.OnLogin != nil {
		h.OnLogin(resp)
	}
}

func (h Handlers) socketOpen() {
	if h.OnSocketOpen != nil {
		h.OnSocketOpen()
	}
}

func (h Handlers) hello() {
	if h.OnHello != nil {
		h.OnHello()
	}
}

func (h Handlers) message(m RawMessage) {
	if h.OnMessage != nil {
		h.OnMessage(m)
	}
}
