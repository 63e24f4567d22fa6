// Package webhook delivers signed scrape notifications over HTTP.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/use-agent/sectionscraper/config"
	"github.com/use-agent/sectionscraper/models"
)

// SignatureHeader carries "sha256=<hex>" HMAC of the request body.
const SignatureHeader = "X-Sectionscraper-Signature"

const (
	EventScrapeCompleted = "scrape.completed"
	EventScrapeTest      = "scrape.test"
)

const maxTitleLen = 100

var defaultRetryDelays = []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}

// Event is the payload sent to the webhook endpoint.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// CompletedData describes a finished scrape.
type CompletedData struct {
	URL        string `json:"url"`
	ID         string `json:"id"`
	Title      string `json:"title"`
	Sections   int    `json:"sections"`
	Errors     int    `json:"errors"`
	ScrapeTime int64  `json:"scrapeTime"`
}

// TestData is the body of a test event.
type TestData struct {
	Message string `json:"message"`
}

// NewCompletedEvent builds a scrape.completed event. scrapeTime is in
// milliseconds; the title is cut to 100 characters.
func NewCompletedEvent(id string, result *models.ScrapeResult, scrapeTime int64, now time.Time) *Event {
	title := []rune(result.Meta.Title)
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen]
	}
	return &Event{
		Type:      EventScrapeCompleted,
		Timestamp: now.UTC(),
		Data: CompletedData{
			URL:        result.URL,
			ID:         id,
			Title:      string(title),
			Sections:   len(result.Sections),
			Errors:     len(result.Errors),
			ScrapeTime: scrapeTime,
		},
	}
}

// NewTestEvent builds a scrape.test event.
func NewTestEvent(now time.Time) *Event {
	return &Event{
		Type:      EventScrapeTest,
		Timestamp: now.UTC(),
		Data:      TestData{Message: "Test notification from sectionscraper"},
	}
}

// Notifier posts events to one configured endpoint.
type Notifier struct {
	url    string
	secret string
	client *http.Client
	delays []time.Duration
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithHTTPClient replaces the default 10s-timeout client.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.client = c }
}

// WithRetryDelays replaces the async retry schedule. The first delay
// precedes the first attempt.
func WithRetryDelays(d ...time.Duration) Option {
	return func(n *Notifier) { n.delays = d }
}

// New creates a Notifier from cfg. An empty WebhookURL yields a Notifier
// that reports itself unconfigured and refuses to deliver.
func New(cfg config.NotifyConfig, opts ...Option) *Notifier {
	n := &Notifier{
		url:    strings.TrimSpace(cfg.WebhookURL),
		secret: cfg.Secret,
		client: &http.Client{Timeout: 10 * time.Second},
		delays: defaultRetryDelays,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Configured reports whether an endpoint is set.
func (n *Notifier) Configured() bool { return n.url != "" }

// MaskedConfig describes the configuration without leaking secrets.
type MaskedConfig struct {
	Configured bool   `json:"configured"`
	WebhookURL string `json:"webhookUrl,omitempty"`
	Signed     bool   `json:"signed"`
}

// Masked returns the configuration with the endpoint partially hidden.
func (n *Notifier) Masked() MaskedConfig {
	return MaskedConfig{
		Configured: n.Configured(),
		WebhookURL: mask(n.url),
		Signed:     n.secret != "",
	}
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Deliver sends an event synchronously. The body is signed when a secret
// is configured.
func (n *Notifier) Deliver(ctx context.Context, event *Event) error {
	if !n.Configured() {
		return models.NewScrapeError(models.ErrCodeNotify, "notifications are not configured", nil)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Sectionscraper-Webhook/1.0")
	if n.secret != "" {
		req.Header.Set(SignatureHeader, Sign(n.secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// DeliverAsync sends an event in the background, retrying on failure.
// The returned channel is closed once delivery succeeds or retries run out.
func (n *Notifier) DeliverAsync(event *Event) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for attempt, delay := range n.delays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := n.Deliver(ctx, event)
			cancel()
			if err == nil {
				slog.Info("webhook delivered",
					"event", event.Type,
					"attempt", attempt+1,
				)
				return
			}
			slog.Warn("webhook delivery failed",
				"event", event.Type,
				"attempt", attempt+1,
				"error", err,
			)
		}
		slog.Error("webhook delivery exhausted all retries",
			"event", event.Type,
			"url", mask(n.url),
		)
	}()
	return done
}

// mask keeps the scheme and host of u and hides the rest.
func mask(u string) string {
	if u == "" {
		return ""
	}
	scheme, rest, ok := strings.Cut(u, "://")
	if !ok {
		return "***"
	}
	host, _, hasPath := strings.Cut(rest, "/")
	if !hasPath {
		return scheme + "://" + host
	}
	return scheme + "://" + host + "/***"
}
