package channels

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/mcdev12/courtline/go/internal/models"
)

// EmailConfig points the email sender at a transactional email API.
type EmailConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	From    string        `yaml:"from"`
	Timeout time.Duration `yaml:"timeout"`
	Breaker BreakerConfig `yaml:"breaker"`
}

type emailAttachment struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
}

type emailRequest struct {
	From        string            `json:"from"`
	To          []string          `json:"to"`
	Subject     string            `json:"subject"`
	HTML        string            `json:"html"`
	BCC         []string          `json:"bcc,omitempty"`
	Attachments []emailAttachment `json:"attachments,omitempty"`
}

// EmailSender delivers rendered emails.
type EmailSender struct {
	cfg    EmailConfig
	client *httpClient
}

func NewEmailSender(cfg EmailConfig) *EmailSender {
	client := newHTTPClient(models.ChannelEmail, cfg.Timeout, cfg.Breaker)
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	return &EmailSender{
		cfg:    cfg,
		client: client,
	}
}

// Send posts p to {base}/emails.
func (s *EmailSender) Send(ctx context.Context, p models.EmailPayload) error {
	switch {
	case s.cfg.BaseURL == "":
		return missing(models.ChannelEmail, "base url")
	case s.cfg.APIKey == "":
		return missing(models.ChannelEmail, "api key")
	case s.cfg.From == "":
		return missing(models.ChannelEmail, "sender address")
	}

	req := emailRequest{
		From:    s.cfg.From,
		To:      []string{p.To},
		Subject: p.Subject,
		HTML:    p.HTML,
		BCC:     p.BCC,
	}
	if p.ICSAttachment != nil {
		req.Attachments = []emailAttachment{{
			Filename:    p.ICSAttachment.Filename,
			Content:     base64.StdEncoding.EncodeToString(p.ICSAttachment.Content),
			ContentType: p.ICSAttachment.ContentType,
		}}
	}

	return s.client.PostJSON(ctx, strings.TrimRight(s.cfg.BaseURL, "/")+"/emails", req)
}
