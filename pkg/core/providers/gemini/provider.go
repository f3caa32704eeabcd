// Package gemini implements the turn-based chat endpoint over plain
// HTTP+JSON. The wire format uses camelCase field names.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/sagepoint-analytics/sage-go/pkg/core"
)

const (
	// DefaultBaseURL is the default API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultTimeout bounds one HTTP round trip.
	DefaultTimeout = 30 * time.Second

	defaultMaxRetries = 2
	retryBaseDelay    = 500 * time.Millisecond
)

// Provider calls the generateContent endpoint.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxRetries uint64
}

// Option configures a Provider.
type Option func(*Provider)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = url
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = hc
	}
}

// WithMaxRetries sets how many times retryable failures are retried.
func WithMaxRetries(n uint64) Option {
	return func(p *Provider) {
		p.maxRetries = n
	}
}

// New creates a provider.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "gemini"
}

// GenerateContent sends one turn request. Rate-limit and server errors are
// retried with fibonacci backoff; 4xx classification errors are not.
func (p *Provider) GenerateContent(ctx context.Context, model string, req *Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, model)

	var respBody []byte
	backoff := retry.WithMaxRetries(p.maxRetries, retry.NewFibonacci(retryBaseDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		body, reqErr := p.doRequest(ctx, url, payload)
		if reqErr != nil {
			var ce *core.Error
			if errors.As(reqErr, &ce) && ce.IsRetryable() {
				return retry.RetryableError(reqErr)
			}
			return reqErr
		}
		respBody = body
		return nil
	})
	if err != nil {
		return nil, err
	}

	return parseResponse(respBody)
}

// doRequest performs a single HTTP round trip.
func (p *Provider) doRequest(ctx context.Context, url string, payload []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewTransportError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, parseError(resp)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return respBody, nil
}
