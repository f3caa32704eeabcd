// Package sheets talks to the spreadsheet-backed Apps Script endpoint that
// receives form leads, appointment bookings and chat logs, and serves the
// FAQ knowledge base.
//
// The submission path is deliberately fire-and-forget: the deployed web app
// cannot be read cross-origin, so the response body and status are never
// inspected. A completed send within the timeout window counts as success.
package sheets

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sagepoint-analytics/sage-go/pkg/core"
)

const (
	// SubmitTimeout bounds every submission call.
	SubmitTimeout = 10 * time.Second

	// Source is the fixed tag injected into every submitted record.
	Source = "Sagepoint Web"

	scriptHost = "script.google.com"
)

// Record type values recognized by the spreadsheet.
const (
	RecordTypeAppointment  = "Cita Consultoría (Voz/Chat)"
	RecordTypeWebForm      = "Formulario Web"
	RecordTypeTextLog      = "Chat Log (Text)"
	RecordTypeVoiceLog     = "Chat Log (Voice)"
	RecordTypeVoicePartial = "Chat Log (Voice - Partial)"
)

// Entry is one question/answer pair from the FAQ listing.
type Entry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ValidateEndpoint classifies a script endpoint URL. It is a pure function.
// The editor-URL case is detected separately because pasting the editor
// address instead of the deployed web-app address is the recurring operator
// mistake; it must produce an actionable message, not a generic failure.
func ValidateEndpoint(rawURL string) error {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return core.NewConfigurationError("script endpoint URL is not configured", "empty_url")
	}
	if strings.Contains(trimmed, "PLACEHOLDER") || strings.Contains(trimmed, "REEMPLAZA") {
		return core.NewConfigurationError("script endpoint URL still contains the placeholder value", "placeholder_url")
	}
	// Editor paths win over a matching host: an editor URL contains the
	// valid host but will never accept submissions.
	if strings.Contains(trimmed, "/edit") || strings.Contains(trimmed, "/projects/") || strings.Contains(trimmed, "/home/") {
		return core.NewConfigurationError(
			"script endpoint URL points at the Apps Script editor; deploy the project as a web app and use the /exec URL",
			"editor_url",
		)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host != scriptHost {
		return core.NewConfigurationError("script endpoint URL must be a script.google.com web-app URL", "wrong_host")
	}
	return nil
}

// Client submits records to and reads the knowledge base from one deployed
// script endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for the given endpoint URL. The URL is validated
// lazily on each call, so a misconfigured client still constructs and
// reports the configuration problem when used.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: &http.Client{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the configured endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Validate checks the configured endpoint.
func (c *Client) Validate() error {
	return ValidateEndpoint(c.endpoint)
}

// Submit posts a record as form-encoded fields, injecting the timestamp and
// source tag. It returns false on an invalid endpoint, a network failure or
// the timeout, and never panics or returns an error: all failures collapse
// to the boolean.
func (c *Client) Submit(ctx context.Context, record map[string]string) bool {
	if err := c.Validate(); err != nil {
		c.logger.Error("submit rejected, endpoint misconfigured", "error", err)
		return false
	}

	form := url.Values{}
	form.Set("action", "submit")
	for k, v := range record {
		form.Set(k, v)
	}
	form.Set("timestamp", c.now().UTC().Format(time.RFC3339))
	form.Set("source", Source)

	ctx, cancel := context.WithTimeout(ctx, SubmitTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		c.logger.Error("submit request build failed", "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("submit failed", "error", err)
		return false
	}
	// Opaque transport: drain and discard, the status carries no signal.
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return true
}

// FetchKnowledgeBase retrieves the FAQ listing. It returns an empty slice on
// an invalid endpoint, a non-2xx status, an HTML response (the tell-tale
// sign of a misconfigured URL) or malformed JSON. Callers waiting on
// conversation context must never block on errors here.
func (c *Client) FetchKnowledgeBase(ctx context.Context) []Entry {
	if err := c.Validate(); err != nil {
		c.logger.Error("knowledge base fetch rejected, endpoint misconfigured", "error", err)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?action=getFaqs", nil)
	if err != nil {
		c.logger.Error("knowledge base request build failed", "error", err)
		return nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("knowledge base fetch failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("knowledge base fetch returned non-2xx", "status", resp.StatusCode)
		return nil
	}
	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "text/html") {
		c.logger.Warn("knowledge base fetch returned HTML, endpoint likely misdeployed", "content_type", ct)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn("knowledge base read failed", "error", err)
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		c.logger.Warn("knowledge base payload is not a JSON array", "error", err)
		return nil
	}
	return entries
}
