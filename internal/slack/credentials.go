// Package slack provides the Slack boundary: Web API and Socket Mode access
// through slack-go, timestamp handling, and the user directory used to
// resolve author names and mentions.
package slack

import (
	"errors"
	"fmt"
	"strings"
)

// Token prefixes accepted by Slack.
const (
	BotTokenPrefix  = "xoxb-"
	UserTokenPrefix = "xoxp-"
	AppTokenPrefix  = "xapp-"
)

// ErrMissingToken is returned when no API token is configured.
var ErrMissingToken = errors.New("slack token is required")

// Credentials holds the tokens needed to reach Slack.
type Credentials struct {
	Token    string // xoxb-... or xoxp-...
	AppToken string // xapp-..., required for the live connection
}

// Validate checks the token shapes. AppToken is optional; without it only
// request/response operations are available.
func (c Credentials) Validate() error {
	if c.Token == "" {
		return ErrMissingToken
	}
	if !strings.HasPrefix(c.Token, BotTokenPrefix) && !strings.HasPrefix(c.Token, UserTokenPrefix) {
		return fmt.Errorf("token must start with %s or %s", BotTokenPrefix, UserTokenPrefix)
	}
	if c.AppToken != "" && !strings.HasPrefix(c.AppToken, AppTokenPrefix) {
		return fmt.Errorf("app token must start with %s", AppTokenPrefix)
	}
	return nil
}

// HasRealtime reports whether a live connection can be opened.
func (c Credentials) HasRealtime() bool {
	return c.AppToken != ""
}

// Masked returns the token with everything but its prefix and last four
// characters hidden, for display.
func Masked(token string) string {
	if token == "" {
		return "(none)"
	}
	if len(token) <= 9 {
		return strings.Repeat("*", len(token))
	}
	return token[:5] + strings.Repeat("*", len(token)-9) + token[len(token)-4:]
}
