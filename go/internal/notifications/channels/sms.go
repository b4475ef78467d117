package channels

import (
	"context"
	"strings"
	"time"

	"github.com/mcdev12/courtline/go/internal/models"
)

const smsAPIKeyHeader = "X-API-Key"

// SMSConfig points the SMS sender at a gateway.
type SMSConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	From    string        `yaml:"from"`
	Timeout time.Duration `yaml:"timeout"`
	Breaker BreakerConfig `yaml:"breaker"`
}

type smsRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

// SMSSender delivers text messages.
type SMSSender struct {
	cfg    SMSConfig
	client *httpClient
}

func NewSMSSender(cfg SMSConfig) *SMSSender {
	client := newHTTPClient(models.ChannelSMS, cfg.Timeout, cfg.Breaker)
	if cfg.APIKey != "" {
		client.SetHeader(smsAPIKeyHeader, cfg.APIKey)
	}
	return &SMSSender{
		cfg:    cfg,
		client: client,
	}
}

// Send posts p to {base}/messages.
func (s *SMSSender) Send(ctx context.Context, p models.SMSPayload) error {
	switch {
	case s.cfg.BaseURL == "":
		return missing(models.ChannelSMS, "base url")
	case s.cfg.APIKey == "":
		return missing(models.ChannelSMS, "api key")
	case s.cfg.From == "":
		return missing(models.ChannelSMS, "sender number")
	}

	return s.client.PostJSON(ctx, strings.TrimRight(s.cfg.BaseURL, "/")+"/messages", smsRequest{
		From: s.cfg.From,
		To:   p.To,
		Text: p.Text,
	})
}
