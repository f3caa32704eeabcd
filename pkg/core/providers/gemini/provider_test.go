package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sagepoint-analytics/sage-go/pkg/core"
)

func newTestProvider(handler http.HandlerFunc) (*Provider, func()) {
	server := httptest.NewServer(handler)
	p := New("test-key", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	return p, server.Close
}

func TestGenerateContent_Text(t *testing.T) {
	t.Parallel()

	provider, done := newTestProvider(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.5-flash:generateContent" {
			t.Errorf("path = %q, want generateContent", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.SystemInstruction == nil {
			t.Error("systemInstruction not forwarded")
		}
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Claro, "},{"text":"con gusto."}]},"finishReason":"STOP"}]}`))
	})
	defer done()

	system := TextContent("", "instructions")
	resp, err := provider.GenerateContent(context.Background(), "gemini-2.5-flash", &Request{
		Contents:          []Content{TextContent("user", "hola")},
		SystemInstruction: &system,
	})
	if err != nil {
		t.Fatalf("GenerateContent() error = %v", err)
	}
	if got := resp.Text(); got != "Claro, con gusto." {
		t.Errorf("Text() = %q, want %q", got, "Claro, con gusto.")
	}
	if calls := resp.FunctionCalls(); len(calls) != 0 {
		t.Errorf("FunctionCalls() = %d, want 0", len(calls))
	}
}

func TestGenerateContent_FunctionCall(t *testing.T) {
	t.Parallel()

	provider, done := newTestProvider(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"functionCall":{"name":"scheduleAppointment","args":{"name":"Ana","email":"ana@x.com","date":"2026-09-01"}}}]},"finishReason":"STOP"}]}`))
	})
	defer done()

	resp, err := provider.GenerateContent(context.Background(), "gemini-2.5-flash", &Request{
		Contents: []Content{TextContent("user", "agenda una cita")},
	})
	if err != nil {
		t.Fatalf("GenerateContent() error = %v", err)
	}
	calls := resp.FunctionCalls()
	if len(calls) != 1 {
		t.Fatalf("FunctionCalls() = %d, want 1", len(calls))
	}
	if calls[0].Name != "scheduleAppointment" || calls[0].Args["name"] != "Ana" {
		t.Errorf("call = %+v, want scheduleAppointment(Ana)", calls[0])
	}
}

func TestGenerateContent_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int64
	provider, done := newTestProvider(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			http.Error(w, `{"error":{"code":503,"message":"overloaded"}}`, http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]},"finishReason":"STOP"}]}`))
	})
	defer done()

	resp, err := provider.GenerateContent(context.Background(), "gemini-2.5-flash", &Request{
		Contents: []Content{TextContent("user", "hola")},
	})
	if err != nil {
		t.Fatalf("GenerateContent() error = %v", err)
	}
	if resp.Text() != "ok" {
		t.Errorf("Text() = %q, want ok", resp.Text())
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestGenerateContent_NoRetryOnClientError(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int64
	provider, done := newTestProvider(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, `{"error":{"code":400,"message":"bad contents"}}`, http.StatusBadRequest)
	})
	defer done()

	_, err := provider.GenerateContent(context.Background(), "gemini-2.5-flash", &Request{})
	if !core.IsType(err, core.ErrInvalidRequest) {
		t.Fatalf("error = %v, want invalid_request_error", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on 4xx)", got)
	}
}

func TestGenerateContent_NoCandidates(t *testing.T) {
	t.Parallel()

	provider, done := newTestProvider(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	})
	defer done()

	_, err := provider.GenerateContent(context.Background(), "gemini-2.5-flash", &Request{})
	if !core.IsType(err, core.ErrProtocol) {
		t.Fatalf("error = %v, want protocol_error", err)
	}
}
