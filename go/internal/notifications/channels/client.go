package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mcdev12/courtline/go/internal/models"
)

const (
	defaultTimeout = 10 * time.Second
	// maxErrorBody caps how much of a provider's error response ends up in a record.
	maxErrorBody = 512
)

// BreakerConfig tunes the circuit breaker in front of a provider.
type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold int           `yaml:"failure_threshold"`
	MinRequests      int           `yaml:"min_requests"`
	RecoveryTime     time.Duration `yaml:"recovery_time"`
	SamplingWindow   time.Duration `yaml:"sampling_window"`
	HalfOpenMax      int           `yaml:"half_open_max"`
}

// DefaultBreakerConfig trips after 5 failures out of at least 5 requests in a minute.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:          true,
		FailureThreshold: 5,
		MinRequests:      5,
		RecoveryTime:     30 * time.Second,
		SamplingWindow:   time.Minute,
		HalfOpenMax:      1,
	}
}

type circuitBreaker interface {
	Execute(fn func() error) error
}

type noopBreaker struct{}

func (noopBreaker) Execute(fn func() error) error { return fn() }

type gobreakerWrapper struct {
	cb *gobreaker.CircuitBreaker
}

func (g *gobreakerWrapper) Execute(fn func() error) error {
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

func newBreaker(name string, cfg BreakerConfig) circuitBreaker {
	if !cfg.Enabled {
		return noopBreaker{}
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(max(cfg.HalfOpenMax, 1)),
		Interval:    cfg.SamplingWindow,
		Timeout:     cfg.RecoveryTime,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < uint32(cfg.MinRequests) {
				return false
			}
			return counts.TotalFailures >= uint32(cfg.FailureThreshold)
		},
		IsSuccessful: providerHealthy,
	}
	return &gobreakerWrapper{cb: gobreaker.NewCircuitBreaker(settings)}
}

// providerHealthy reports whether err leaves the provider's breaker alone.
// A 4xx other than 429 rejects one request (a bad address, say), not the provider.
func providerHealthy(err error) bool {
	if err == nil {
		return true
	}
	var chErr *ChannelError
	if !errors.As(err, &chErr) {
		return false
	}
	code := chErr.StatusCode
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}

// httpClient posts JSON to one provider.
type httpClient struct {
	channel models.Channel
	client  *http.Client
	headers map[string]string
	breaker circuitBreaker
}

func newHTTPClient(channel models.Channel, timeout time.Duration, breaker BreakerConfig) *httpClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &httpClient{
		channel: channel,
		client: &http.Client{
			Timeout: timeout,
		},
		headers: make(map[string]string),
		breaker: newBreaker(string(channel), breaker),
	}
}

func (c *httpClient) SetHeader(key, value string) {
	c.headers[key] = value
}

// PostJSON sends body to url. Every failure comes back as a *ChannelError.
func (c *httpClient) PostJSON(ctx context.Context, url string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &ChannelError{Channel: c.channel, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	err = c.breaker.Execute(func() error {
		return c.post(ctx, url, payload)
	})
	if err == nil {
		return nil
	}

	var chErr *ChannelError
	if errors.As(err, &chErr) {
		return chErr
	}
	// open or half-open circuit rejected the call
	return &ChannelError{Channel: c.channel, Err: err}
}

func (c *httpClient) post(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &ChannelError{Channel: c.channel, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &ChannelError{Channel: c.channel, Err: fmt.Errorf("failed to make request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &ChannelError{
			Channel:    c.channel,
			StatusCode: resp.StatusCode,
			Body:       string(bytes.TrimSpace(responseBody)),
			Err:        fmt.Errorf("provider returned status code %d", resp.StatusCode),
		}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
