package sage

import (
	"log/slog"
	"net/http"

	"github.com/sagepoint-analytics/sage-go/pkg/history"
)

// ClientOption configures the client.
type ClientOption func(*Client)

// WithAPIKey sets the conversational endpoint API key. Defaults to the
// GEMINI_API_KEY (or GOOGLE_API_KEY) environment variable.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient overrides the HTTP client used for the chat endpoint and
// the submission endpoint.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the structured logger. Defaults to a discard handler.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithLanguage sets the initial display language, "es" (default) or "en".
func WithLanguage(lang string) ClientOption {
	return func(c *Client) {
		c.language = lang
	}
}

// WithHistory sets the conversation store. Defaults to an in-memory store.
func WithHistory(store history.Store) ClientOption {
	return func(c *Client) {
		c.store = store
	}
}

// WithScriptURL sets the spreadsheet submission endpoint URL.
func WithScriptURL(url string) ClientOption {
	return func(c *Client) {
		c.scriptURL = url
	}
}

// WithChatModel overrides the turn-based chat model.
func WithChatModel(model string) ClientOption {
	return func(c *Client) {
		c.chatModel = model
	}
}

// WithLiveModel overrides the live audio model.
func WithLiveModel(model string) ClientOption {
	return func(c *Client) {
		c.liveModel = model
	}
}

// WithVoice selects the prebuilt synthesis voice for live sessions.
func WithVoice(name string) ClientOption {
	return func(c *Client) {
		c.voice = name
	}
}

// WithLiveEndpoint overrides the live websocket endpoint, for proxies and
// tests.
func WithLiveEndpoint(url string) ClientOption {
	return func(c *Client) {
		c.liveEndpoint = url
	}
}

// WithCaptureSource sets the microphone capture source for voice sessions.
func WithCaptureSource(src CaptureSource) ClientOption {
	return func(c *Client) {
		c.capture = src
	}
}

// WithPlaybackSink sets the audio playback sink for voice sessions.
func WithPlaybackSink(sink PlaybackSink) ClientOption {
	return func(c *Client) {
		c.playbackSink = sink
	}
}

// WithMessageHook registers a callback invoked after every message appended
// to the conversation store, for UI updates.
func WithMessageHook(fn func(history.Message)) ClientOption {
	return func(c *Client) {
		c.onMessage = fn
	}
}
