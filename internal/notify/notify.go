// Package notify delivers new-release events to downstream consumers.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/relwatch/relwatch/internal/core"
)

// Webhook posts each event as a JSON document to a fixed endpoint.
type Webhook struct {
	url       string
	client    *http.Client
	userAgent string
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *Webhook) {
		w.client = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) WebhookOption {
	return func(w *Webhook) {
		w.userAgent = ua
	}
}

func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:       url,
		client:    &http.Client{Timeout: 10 * time.Second},
		userAgent: "relwatch",
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Publish delivers one event. Any non-2xx response is an error; the caller
// decides whether delivery failures matter.
func (w *Webhook) Publish(ctx context.Context, event core.NewReleaseEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", w.userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting event: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// LogPublisher writes each event to the structured log. Useful as the
// default sink when no webhook is configured.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (l *LogPublisher) Publish(_ context.Context, event core.NewReleaseEvent) error {
	l.log.Info().
		Str("project", event.Project).
		Str("ecosystem", event.Ecosystem).
		Str("version", event.Version).
		Str("raw", event.Raw).
		Msg("new release")
	return nil
}

// Fanout publishes to every sink, returning the first error after trying all.
type Fanout []core.Publisher

func (f Fanout) Publish(ctx context.Context, event core.NewReleaseEvent) error {
	var first error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
