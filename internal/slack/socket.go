package slack

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// ErrNoAppToken is returned when a live connection is requested without an
// app-level token.
var ErrNoAppToken = errors.New("app-level token is required for the live connection")

// Session is a running login and, optionally, Socket Mode connection.
type Session struct {
	cancel context.CancelFunc
	once   sync.Once
}

// Close stops the session. It does not wait for the socket to drain.
func (s *Session) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// Start begins a handshake and returns immediately. The login result is
// delivered through h.OnLogin. When live is true and login succeeded, a
// Socket Mode connection is opened: h.OnSocketOpen fires when the websocket
// is up, h.OnHello when Slack greets it, and h.OnMessage for every message
// event. All handlers for one session are called from a single goroutine.
func (c *Client) Start(ctx context.Context, h Handlers, live bool) (io.Closer, error) {
	if live && c.creds.AppToken == "" {
		return nil, ErrNoAppToken
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{cancel: cancel}
	go c.run(runCtx, h, live)
	return s, nil
}

func (c *Client) run(ctx context.Context, h Handlers, live bool) {
	resp := c.Login(ctx)
	h.login(resp)
	if !resp.OK || !live {
		return
	}

	sm := socketmode.New(c.api, socketmode.OptionDebug(false))
	go func() {
		if err := sm.RunContext(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("socket mode stopped", "op", "Start", "error", err)
		}
	}()
	c.pump(ctx, sm, h)
}

func (c *Client) pump(ctx context.Context, sm *socketmode.Client, h Handlers) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sm.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeConnecting:
				c.logger.Debug("connecting to Slack", "op", "Start")
			case socketmode.EventTypeConnected:
				h.socketOpen()
			case socketmode.EventTypeHello:
				h.hello()
			case socketmode.EventTypeInvalidAuth:
				// The socket will never open; release anyone waiting on it.
				c.logger.Warn("socket mode rejected the app token", "op", "Start")
				h.socketOpen()
				h.hello()
			case socketmode.EventTypeConnectionError:
				c.logger.Warn("socket mode connection error", "op", "Start", "data", evt.Data)
			case socketmode.EventTypeEventsAPI:
				if evt.Request != nil {
					sm.Ack(*evt.Request)
				}
				ev, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				if msg, ok := messageFromEvent(ev); ok {
					h.message(msg)
				}
			}
		}
	}
}

// messageFromEvent extracts a new channel message from an Events API
// callback. Edits, deletions and other subtypes are ignored.
func messageFromEvent(ev slackevents.EventsAPIEvent) (RawMessage, bool) {
	if ev.Type != slackevents.CallbackEvent {
		return RawMessage{}, false
	}
	me, ok := ev.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return RawMessage{}, false
	}
	if me.SubType != "" && me.SubType != "bot_message" {
		return RawMessage{}, false
	}
	return RawMessage{
		Channel:   me.Channel,
		User:      me.User,
		Username:  me.Username,
		Text:      me.Text,
		Timestamp: me.TimeStamp,
	}, true
}
