package models

// Attachment is a file attached to an email.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// EmailPayload is a fully rendered email.
type EmailPayload struct {
	To            string      `json:"to"`
	Subject       string      `json:"subject"`
	HTML          string      `json:"html"`
	ICSAttachment *Attachment `json:"ics_attachment,omitempty"`
	BCC           []string    `json:"bcc,omitempty"`
}

// SMSPayload is a fully rendered text message. To is digits only.
type SMSPayload struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// SlackPayload is a fully rendered chat webhook message.
type SlackPayload struct {
	Text string `json:"text"`
}

// RenderedPayload holds the per-channel content produced for one event.
// A nil field means the event produced nothing for that channel.
type RenderedPayload struct {
	Email *EmailPayload `json:"email,omitempty"`
	SMS   *SMSPayload   `json:"sms,omitempty"`
	Slack *SlackPayload `json:"slack,omitempty"`
}

// Has reports whether a payload was rendered for channel c.
func (p RenderedPayload) Has(c Channel) bool {
	switch c {
	case ChannelEmail:
		return p.Email != nil
	case ChannelSMS:
		return p.SMS != nil
	case ChannelSlack:
		return p.Slack != nil
	default:
		return false
	}
}
