package channels

import (
	"errors"
	"fmt"

	"github.com/mcdev12/courtline/go/internal/models"
)

// ErrConfigurationMissing is returned before any network I/O when a channel
// lacks the key, URL or sender address it needs.
var ErrConfigurationMissing = errors.New("channel configuration missing")

// ChannelError is a failed delivery on one channel.
type ChannelError struct {
	Channel    models.Channel
	StatusCode int
	Body       string
	Err        error
}

func (e *ChannelError) Error() string {
	if e.StatusCode != 0 {
		if e.Body != "" {
			return fmt.Sprintf("%s send failed: status %d: %s", e.Channel, e.StatusCode, e.Body)
		}
		return fmt.Sprintf("%s send failed: status %d", e.Channel, e.StatusCode)
	}
	return fmt.Sprintf("%s send failed: %v", e.Channel, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

func missing(channel models.Channel, what string) error {
	return fmt.Errorf("%s: %w: %s", channel, ErrConfigurationMissing, what)
}
