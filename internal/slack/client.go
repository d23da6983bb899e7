// Package slack posts messages to Slack through the Web API.
package slack

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"

	"bankbot/internal/log"
	"bankbot/internal/ports"
)

const DefaultBaseURL = "https://slack.com/api"

var _ ports.NotificationSink = (*Client)(nil)

// Client is a NotificationSink posting with chat.postMessage.
type Client struct {
	api    *slackapi.Client
	logger *log.Logger
}

// NewClient creates a client authenticated with a bot token. baseURL may be
// empty for the public API.
func NewClient(token, baseURL string, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = log.Discard()
	}
	api := slackapi.New(token,
		slackapi.OptionAPIURL(strings.TrimRight(baseURL, "/")+"/"),
		slackapi.OptionHTTPClient(&http.Client{Timeout: 30 * time.Second}))

	return &Client{
		api:    api,
		logger: logger.WithComponent(log.ComponentSlack),
	}
}

// PostMessage sends text to channel. Text is rendered as mrkdwn. A response
// with ok=false comes back as slackapi.SlackErrorResponse.
func (c *Client) PostMessage(ctx context.Context, text, channel string) error {
	ch, ts, err := c.api.PostMessageContext(ctx, channel, slackapi.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}

	c.logger.DebugContext(ctx, "Message posted",
		log.FieldChannel, ch,
		"ts", ts)
	return nil
}
