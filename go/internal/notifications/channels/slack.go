package channels

import (
	"context"
	"time"

	"github.com/mcdev12/courtline/go/internal/models"
)

// SlackConfig holds the incoming webhook for shop staff alerts.
type SlackConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
	Breaker    BreakerConfig `yaml:"breaker"`
}

type slackRequest struct {
	Text string `json:"text"`
}

// SlackSender posts to an incoming webhook.
type SlackSender struct {
	cfg    SlackConfig
	client *httpClient
}

func NewSlackSender(cfg SlackConfig) *SlackSender {
	return &SlackSender{
		cfg:    cfg,
		client: newHTTPClient(models.ChannelSlack, cfg.Timeout, cfg.Breaker),
	}
}

func (s *SlackSender) Send(ctx context.Context, p models.SlackPayload) error {
	if s.cfg.WebhookURL == "" {
		return missing(models.ChannelSlack, "webhook url")
	}
	return s.client.PostJSON(ctx, s.cfg.WebhookURL, slackRequest{Text: p.Text})
}
