// Package sage is the session core of the Sagepoint assistant widget. It
// coordinates a turn-based text chat path and a full-duplex live voice
// session against the same conversational endpoint, appointment scheduling
// through tool calls, and a durable conversation log shared by both paths.
package sage

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/sagepoint-analytics/sage-go/pkg/core/providers/gemini"
	"github.com/sagepoint-analytics/sage-go/pkg/history"
	"github.com/sagepoint-analytics/sage-go/pkg/sheets"
)

// Default models for the two conversation paths.
const (
	DefaultChatModel = "gemini-2.5-flash"
	DefaultLiveModel = "gemini-2.5-flash-native-audio-preview-12-2025"
	DefaultVoice     = "Zephyr"
)

// chatTransport is the turn-based endpoint surface the orchestrator needs.
type chatTransport interface {
	GenerateContent(ctx context.Context, model string, req *gemini.Request) (*gemini.Response, error)
}

// Client is the main entry point.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client

	apiKey       string
	sessionID    string
	chatModel    string
	liveModel    string
	voice        string
	scriptURL    string
	liveEndpoint string

	transport chatTransport
	sheets    *sheets.Client
	store     history.Store
	onMessage func(history.Message)

	capture      CaptureSource
	playbackSink PlaybackSink

	// instruction context, guarded by ctxMu; generation bumps whenever the
	// language or knowledge base changes so cached sessions rebuild.
	ctxMu         sync.RWMutex
	language      string
	knowledgeBase []sheets.Entry
	generation    atomic.Int64

	chatMu  sync.Mutex
	chat    *chatSession
	sending atomic.Bool

	voiceCtl *voiceController
}

// NewClient creates a client. Provider credentials default to the
// GEMINI_API_KEY environment variable.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		sessionID: uuid.NewString(),
		chatModel: DefaultChatModel,
		liveModel: DefaultLiveModel,
		voice:     DefaultVoice,
		language:  "es",
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("GEMINI_API_KEY")
		if c.apiKey == "" {
			c.apiKey = os.Getenv("GOOGLE_API_KEY")
		}
	}

	var providerOpts []gemini.Option
	var sheetOpts []sheets.Option
	if c.httpClient != nil {
		providerOpts = append(providerOpts, gemini.WithHTTPClient(c.httpClient))
		sheetOpts = append(sheetOpts, sheets.WithHTTPClient(c.httpClient))
	}
	sheetOpts = append(sheetOpts, sheets.WithLogger(c.logger))
	if c.transport == nil {
		c.transport = gemini.New(c.apiKey, providerOpts...)
	}
	c.sheets = sheets.New(c.scriptURL, sheetOpts...)

	if c.store == nil {
		store, _ := history.NewStore(history.DriverMemory, history.WithLanguage(c.language))
		c.store = store
	}

	c.voiceCtl = newVoiceController(c)
	return c
}

// Language returns the active display language.
func (c *Client) Language() string {
	c.ctxMu.RLock()
	defer c.ctxMu.RUnlock()
	return c.language
}

// SetLanguage switches the display language and invalidates the cached
// chat session so the next turn rebuilds its instruction context.
func (c *Client) SetLanguage(lang string) {
	lang = strings.TrimSpace(lang)
	if lang != "es" && lang != "en" {
		return
	}
	c.ctxMu.Lock()
	changed := c.language != lang
	c.language = lang
	c.ctxMu.Unlock()
	if changed {
		c.generation.Add(1)
	}
}

// RefreshKnowledgeBase fetches the FAQ listing and, when the fetch
// succeeds, swaps the active knowledge base and invalidates the cached
// chat session. A failed fetch keeps the previous knowledge base.
func (c *Client) RefreshKnowledgeBase(ctx context.Context) int {
	entries := c.sheets.FetchKnowledgeBase(ctx)
	if len(entries) == 0 {
		return 0
	}
	c.ctxMu.Lock()
	c.knowledgeBase = entries
	c.ctxMu.Unlock()
	c.generation.Add(1)
	return len(entries)
}

// Generation returns the instruction context generation counter.
func (c *Client) Generation() int64 {
	return c.generation.Load()
}

// instructionContext snapshots the system instruction and the generation it
// was built at.
func (c *Client) instructionContext() (string, int64) {
	gen := c.generation.Load()
	c.ctxMu.RLock()
	instruction := systemInstruction(c.language, c.knowledgeBase)
	c.ctxMu.RUnlock()
	return instruction, gen
}

func (c *Client) ui() uiStrings {
	return uiText(c.Language())
}

// Messages returns the conversation in insertion order.
func (c *Client) Messages(ctx context.Context) ([]history.Message, error) {
	return c.store.All(ctx)
}

// ClearHistory erases the conversation and resets it to the greeting.
func (c *Client) ClearHistory(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// appendMessage persists a message and notifies the UI hook.
func (c *Client) appendMessage(ctx context.Context, msg history.Message) {
	if err := c.store.Append(ctx, msg); err != nil {
		c.logger.Error("append message failed", "role", msg.Role, "error", err)
	}
	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

func (c *Client) systemNotice(ctx context.Context, text string) {
	c.appendMessage(ctx, history.NewMessage(history.RoleSystem, text))
}

// logExchange fire-and-forgets a chat log record; the result is ignored.
// The session id groups the rows of one conversation together.
func (c *Client) logExchange(recordType, question, answer string) {
	go func() {
		c.sheets.Submit(context.Background(), map[string]string{
			"type":     recordType,
			"question": question,
			"answer":   answer,
			"session":  c.sessionID,
		})
	}()
}

// Lead is a contact form submission.
type Lead struct {
	Name    string
	Email   string
	Service string
}

// SubmitLead posts a contact form lead. It mirrors the submission
// contract: all failures collapse to false.
func (c *Client) SubmitLead(ctx context.Context, lead Lead) bool {
	if strings.TrimSpace(lead.Name) == "" || strings.TrimSpace(lead.Email) == "" || strings.TrimSpace(lead.Service) == "" {
		c.logger.Warn("lead rejected, missing fields")
		return false
	}
	return c.sheets.Submit(ctx, map[string]string{
		"type":    sheets.RecordTypeWebForm,
		"name":    lead.Name,
		"email":   lead.Email,
		"service": lead.Service,
	})
}

// StartVoice opens the live voice session. It is a no-op when a session is
// already connecting or open.
func (c *Client) StartVoice(ctx context.Context) error {
	return c.voiceCtl.start(ctx)
}

// StopVoice tears the live voice session down. Safe to call from any state,
// any number of times.
func (c *Client) StopVoice() {
	c.voiceCtl.teardown(context.Background())
}

// VoiceState reports the live session state.
func (c *Client) VoiceState() VoiceState {
	return c.voiceCtl.currentState()
}

// Volume reports the latest capture volume envelope in [0, 1].
func (c *Client) Volume() float64 {
	return c.voiceCtl.volume()
}
