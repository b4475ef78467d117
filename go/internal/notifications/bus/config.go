package bus

import (
	"time"

	"github.com/nats-io/nats.go"
)

// Config describes the JetStream stream that carries notification triggers.
type Config struct {
	URL             string        `yaml:"url"`
	StreamName      string        `yaml:"stream_name"`
	SubjectPrefix   string        `yaml:"subject_prefix"`
	ConsumerName    string        `yaml:"consumer_name"`
	MaxReconnects   int           `yaml:"max_reconnects"`
	ReconnectWait   time.Duration `yaml:"reconnect_wait"`
	MaxAge          time.Duration `yaml:"max_age"` // How long to keep messages
	MaxMsgs         int64         `yaml:"max_msgs"`
	Replicas        int           `yaml:"replicas"`
	DuplicateWindow time.Duration `yaml:"duplicate_window"` // Window for Nats-Msg-Id dedupe
	MaxDeliver      int           `yaml:"max_deliver"`
	AckWait         time.Duration `yaml:"ack_wait"`
	NakDelay        time.Duration `yaml:"nak_delay"`
}

func DefaultConfig() Config {
	return Config{
		URL:             nats.DefaultURL,
		StreamName:      "STRINGING_NOTIFICATIONS",
		SubjectPrefix:   "notifications.stringing",
		ConsumerName:    "notifier",
		MaxReconnects:   -1, // Infinite
		ReconnectWait:   2 * time.Second,
		MaxAge:          7 * 24 * time.Hour,
		MaxMsgs:         -1,
		Replicas:        1,
		DuplicateWindow: 2 * time.Hour,
		MaxDeliver:      5,
		AckWait:         time.Minute,
		NakDelay:        10 * time.Second,
	}
}
