package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/KOMKZ/go-yogan-monitor/httpclient"
)

// WebhookConfig webhook delivery settings
type WebhookConfig struct {
	URL        string        `mapstructure:"url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries uint64        `mapstructure:"max_retries"` // 0 posts once
}

// WebhookSink posts the alert as JSON
type WebhookSink struct {
	url    string
	client *httpclient.Client
}

// NewWebhookSink creates a webhook sink
func NewWebhookSink(cfg WebhookConfig) *WebhookSink {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSink{
		url: cfg.URL,
		client: httpclient.NewClient(
			httpclient.WithTimeout(timeout),
			httpclient.WithRetry(httpclient.RetryPolicy{
				MaxRetries:      cfg.MaxRetries,
				InitialInterval: time.Second,
			}),
		),
	}
}

// Name sink name
func (s *WebhookSink) Name() string {
	return "webhook"
}

// Deliver posts the alert
func (s *WebhookSink) Deliver(ctx context.Context, a Alert) error {
	resp, err := s.client.PostJSON(ctx, s.url, a)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}

// Publisher publishes a keyed JSON message
type Publisher interface {
	PublishJSON(ctx context.Context, key string, value interface{}) error
}

// PublisherSink forwards alerts to a message broker keyed by check name
type PublisherSink struct {
	name string
	pub  Publisher
}

// NewPublisherSink wraps pub
func NewPublisherSink(name string, pub Publisher) *PublisherSink {
	return &PublisherSink{name: name, pub: pub}
}

// Name sink name
func (s *PublisherSink) Name() string {
	return s.name
}

// Deliver publishes the alert
func (s *PublisherSink) Deliver(ctx context.Context, a Alert) error {
	return s.pub.PublishJSON(ctx, a.Check, a)
}

// FuncSink adapts a function, e.g. a WebSocket broadcast
type FuncSink struct {
	name string
	fn   func(ctx context.Context, a Alert) error
}

// NewFuncSink wraps fn
func NewFuncSink(name string, fn func(ctx context.Context, a Alert) error) *FuncSink {
	return &FuncSink{name: name, fn: fn}
}

// Name sink name
func (s *FuncSink) Name() string {
	return s.name
}

// Deliver calls the function
func (s *FuncSink) Deliver(ctx context.Context, a Alert) error {
	return s.fn(ctx, a)
}
