package slack

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	slackapi "github.com/slack-go/slack"
)

const (
	// DefaultAPIURL is the base URL for Slack's Web API.
	DefaultAPIURL = "https://slack.com/api/"

	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultHistoryLimit caps the number of messages fetched per history query.
	DefaultHistoryLimit = 100

	historyPageSize = 200
)

// Client provides access to the Slack Web API and to a Socket Mode live
// connection. It satisfies the remote and transport collaborators of the
// manager.
type Client struct {
	creds        Credentials
	httpClient   *http.Client
	baseURL      string
	historyLimit int
	logger       *slog.Logger
	api          *slackapi.Client
}

// NewClient creates a new client with the given credentials.
func NewClient(creds Credentials) *Client {
	c := &Client{
		creds:        creds,
		httpClient:   &http.Client{Timeout: DefaultHTTPTimeout},
		baseURL:      DefaultAPIURL,
		historyLimit: DefaultHistoryLimit,
		logger:       slog.Default(),
	}
	c.api = c.newAPI()
	return c
}

func (c *Client) newAPI() *slackapi.Client {
	opts := []slackapi.Option{
		slackapi.OptionHTTPClient(c.httpClient),
		slackapi.OptionAPIURL(c.baseURL),
	}
	if c.creds.AppToken != "" {
		opts = append(opts, slackapi.OptionAppLevelToken(c.creds.AppToken))
	}
	return slackapi.New(c.creds.Token, opts...)
}

func (c *Client) clone() *Client {
	cp := *c
	return &cp
}

// WithBaseURL returns a new Client with the specified API base URL.
// The URL must end with a slash. Useful for testing with mock servers.
func (c *Client) WithBaseURL(baseURL string) *Client {
	cp := c.clone()
	cp.baseURL = baseURL
	cp.api = cp.newAPI()
	return cp
}

// WithHTTPClient returns a new Client with the specified HTTP client.
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	cp := c.clone()
	cp.httpClient = client
	cp.api = cp.newAPI()
	return cp
}

// WithHistoryLimit returns a new Client fetching at most n history messages.
func (c *Client) WithHistoryLimit(n int) *Client {
	cp := c.clone()
	if n <= 0 {
		n = DefaultHistoryLimit
	}
	cp.historyLimit = n
	return cp
}

// WithLogger returns a new Client logging through l.
func (c *Client) WithLogger(l *slog.Logger) *Client {
	cp := c.clone()
	cp.logger = l
	return cp
}

// Credentials returns the client's credentials.
func (c *Client) Credentials() Credentials {
	return c.creds
}

// Login authenticates and fetches the user and channel snapshot.
// Failures are reported through the response, never as an error.
func (c *Client) Login(ctx context.Context) *LoginResponse {
	auth, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return &LoginResponse{Error: err.Error()}
	}
	resp := &LoginResponse{
		Self: Self{ID: auth.UserID, Name: auth.User, BotID: auth.BotID, TeamID: auth.TeamID},
		Team: Team{ID: auth.TeamID, Name: auth.Team, URL: auth.URL},
	}
	if resp.Users, err = c.ListUsers(ctx); err != nil {
		resp.Error = fmt.Sprintf("users.list: %v", err)
		return resp
	}
	if resp.Channels, err = c.ListChannels(ctx); err != nil {
		resp.Error = fmt.Sprintf("conversations.list: %v", err)
		return resp
	}
	resp.OK = true
	return resp
}

// ListUsers returns every workspace member.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	members, err := c.api.GetUsersContext(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(members))
	for _, m := range members {
		users = append(users, User{
			ID:       m.ID,
			Name:     m.Name,
			RealName: m.RealName,
			IsBot:    m.IsBot,
			Deleted:  m.Deleted,
		})
	}
	return users, nil
}

// ListChannels returns all public and private channels visible to the token.
func (c *Client) ListChannels(ctx context.Context) ([]Channel, error) {
	params := &slackapi.GetConversationsParameters{
		Types: []string{"public_channel", "private_channel"},
		Limit: 200,
	}
	var out []Channel
	for {
		chans, next, err := c.api.GetConversationsContext(ctx, params)
		if err != nil {
			return nil, err
		}
		for _, ch := range chans {
			out = append(out, convertChannel(ch))
		}
		if next == "" {
			return out, nil
		}
		params.Cursor = next
	}
}

func convertChannel(ch slackapi.Channel) Channel {
	return Channel{
		ID:         ch.ID,
		Name:       ch.Name,
		IsChannel:  ch.IsChannel,
		IsPrivate:  ch.IsPrivate,
		IsIM:       ch.IsIM,
		IsArchived: ch.IsArchived,
		IsMember:   ch.IsMember,
	}
}

// PostMessage posts text to a channel. A non-empty botName is shown as the
// author instead of the token's identity.
func (c *Client) PostMessage(ctx context.Context, channelID, text, botName string) error {
	opts := []slackapi.MsgOption{slackapi.MsgOptionText(text, false)}
	if botName != "" {
		opts = append(opts, slackapi.MsgOptionUsername(botName))
	}
	_, _, err := c.api.PostMessageContext(ctx, channelID, opts...)
	return err
}

// FetchHistory returns a channel's messages, newest first, up to the
// configured history limit. A non-zero oldest excludes earlier messages.
func (c *Client) FetchHistory(ctx context.Context, channelID string, oldest time.Time) ([]RawMessage, error) {
	params := &slackapi.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     min(c.historyLimit, historyPageSize),
	}
	if !oldest.IsZero() {
		params.Oldest = FormatTimestamp(oldest)
		params.Inclusive = true
	}
	var out []RawMessage
	for {
		resp, err := c.api.GetConversationHistoryContext(ctx, params)
		if err != nil {
			return nil, err
		}
		for _, m := range resp.Messages {
			out = append(out, RawMessage{
				Channel:   channelID,
				User:      m.User,
				Username:  m.Username,
				Text:      m.Text,
				Timestamp: m.Timestamp,
				IsStarred: m.IsStarred,
			})
			if len(out) >= c.historyLimit {
				return out, nil
			}
		}
		if !resp.HasMore || resp.ResponseMetaData.NextCursor == "" {
			return out, nil
		}
		params.Cursor = resp.ResponseMetaData.NextCursor
	}
}

// InviteUser adds a user to a channel.
func (c *Client) InviteUser(ctx context.Context, channelID, userID string) error {
	_, err := c.api.InviteUsersToConversationContext(ctx, channelID, userID)
	return err
}

// RemoveUser removes a user from a channel.
func (c *Client) RemoveUser(ctx context.Context, channelID, userID string) error {
	return c.api.KickUserFromConversationContext(ctx, channelID, userID)
}

// CreateChannel creates a public channel.
func (c *Client) CreateChannel(ctx context.Context, name string) (*Channel, error) {
	ch, err := c.api.CreateConversationContext(ctx, slackapi.CreateConversationParams{ChannelName: name})
	if err != nil {
		return nil, err
	}
	out := convertChannel(*ch)
	return &out, nil
}

// DeleteChannel archives a channel. Slack offers no public delete.
func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	return c.api.ArchiveConversationContext(ctx, channelID)
}

// OpenDirect opens (or returns the existing) direct-message channel with a user.
func (c *Client) OpenDirect(ctx context.Context, userID string) (string, error) {
	ch, _, _, err := c.api.OpenConversationContext(ctx, &slackapi.OpenConversationParameters{
		Users: []string{userID},
	})
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}
