package render

import (
	"fmt"
	"time"
)

// Config holds shop-level settings used by the templates.
type Config struct {
	ShopName    string        `yaml:"shop_name"`
	SiteURL     string        `yaml:"site_url"`
	ShopAddress string        `yaml:"shop_address"`
	AdminBCC    []string      `yaml:"admin_bcc"`
	Timezone    string        `yaml:"timezone"` // IANA name; empty means fixed UTC+9
	Currency    string        `yaml:"currency"`
	EventLength time.Duration `yaml:"event_length"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		ShopName:    "Tennis Shop",
		Currency:    "KRW",
		EventLength: time.Hour,
	}
}

func (c Config) location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.FixedZone("KST", 9*60*60), nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
