package sage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/sagepoint-analytics/sage-go/pkg/core"
	"github.com/sagepoint-analytics/sage-go/pkg/core/providers/gemini"
	"github.com/sagepoint-analytics/sage-go/pkg/history"
)

// fakeChat scripts provider responses for the turn-based path.
type fakeChat struct {
	mu        sync.Mutex
	requests  []*gemini.Request
	responses []*gemini.Response
	err       error
	block     chan struct{}
}

func (f *fakeChat) GenerateContent(ctx context.Context, model string, req *gemini.Request) (*gemini.Response, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return textResponse("ok"), nil
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func (f *fakeChat) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeChat) request(i int) *gemini.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

func textResponse(text string) *gemini.Response {
	return &gemini.Response{Candidates: []gemini.Candidate{{
		Content: gemini.Content{Role: "model", Parts: []gemini.Part{{Text: text}}},
	}}}
}

func toolCallResponse(name string, args map[string]any) *gemini.Response {
	return &gemini.Response{Candidates: []gemini.Candidate{{
		Content: gemini.Content{Role: "model", Parts: []gemini.Part{{
			FunctionCall: &gemini.FunctionCall{ID: "call-1", Name: name, Args: args},
		}}},
	}}}
}

func TestSendText_ReplyPersisted(t *testing.T) {
	t.Parallel()

	fake := &fakeChat{responses: []*gemini.Response{textResponse("Ofrecemos tres planes.")}}
	client := NewClient(WithAPIKey("test"))
	client.transport = fake

	reply, err := client.SendText(context.Background(), "¿Qué planes tienen?")
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if reply != "Ofrecemos tres planes." {
		t.Errorf("reply = %q", reply)
	}

	msgs, err := client.Messages(context.Background())
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want greeting + user + assistant", len(msgs))
	}
	if msgs[1].Role != history.RoleUser || msgs[1].Text != "¿Qué planes tienen?" {
		t.Errorf("user message = %+v", msgs[1])
	}
	if msgs[2].Role != history.RoleAssistant || msgs[2].Text != "Ofrecemos tres planes." {
		t.Errorf("assistant message = %+v", msgs[2])
	}

	req := fake.request(0)
	if req.SystemInstruction == nil || !strings.Contains(req.SystemInstruction.Parts[0].Text, "Sagepoint") {
		t.Error("request is missing the system instruction")
	}
	if len(req.Tools) == 0 || req.Tools[0].FunctionDeclarations[0].Name != scheduleAppointmentName {
		t.Error("request is missing the appointment tool")
	}
}

func TestSendText_EmptyRejected(t *testing.T) {
	t.Parallel()

	client := NewClient(WithAPIKey("test"))
	client.transport = &fakeChat{}

	if _, err := client.SendText(context.Background(), "   "); err == nil {
		t.Fatal("expected an error for blank text")
	}
}

func TestSendText_BusyRejected(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	fake := &fakeChat{block: block}
	client := NewClient(WithAPIKey("test"))
	client.transport = fake

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = client.SendText(context.Background(), "primera")
	}()

	// Wait for the first turn to be holding the in-flight flag.
	for !client.sending.Load() {
		runtime.Gosched()
	}

	if _, err := client.SendText(context.Background(), "segunda"); err == nil {
		t.Error("expected the second concurrent turn to be rejected")
	}

	close(block)
	<-done

	if _, err := client.SendText(context.Background(), "tercera"); err != nil {
		t.Errorf("turn after completion should succeed, got %v", err)
	}
}

func TestSendText_ToolLoopCeiling(t *testing.T) {
	t.Parallel()

	// The scripted response keeps requesting a tool forever.
	fake := &fakeChat{responses: []*gemini.Response{
		toolCallResponse(scheduleAppointmentName, map[string]any{"name": "Ana"}),
	}}
	client := NewClient(WithAPIKey("test"), WithScriptURL(""))
	client.transport = fake

	_, err := client.SendText(context.Background(), "agenda una cita")
	if err == nil {
		t.Fatal("expected the turn to fail once the round ceiling is hit")
	}
	if got := fake.calls(); got != maxToolRounds {
		t.Errorf("provider called %d times, want %d", got, maxToolRounds)
	}

	msgs, _ := client.Messages(context.Background())
	last := msgs[len(msgs)-1]
	if last.Role != history.RoleSystem || !strings.Contains(last.Text, "atascada") {
		t.Errorf("expected a stuck-assistant notice, got %+v", last)
	}
}

func TestSendText_TurnFailureNotice(t *testing.T) {
	t.Parallel()

	fake := &fakeChat{err: core.NewOverloadedError("model overloaded")}
	client := NewClient(WithAPIKey("test"))
	client.transport = fake

	_, err := client.SendText(context.Background(), "hola")
	if err == nil {
		t.Fatal("expected the provider error to surface")
	}

	msgs, _ := client.Messages(context.Background())
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want greeting + user + notice", len(msgs))
	}
	if msgs[1].Role != history.RoleUser {
		t.Errorf("user message should persist on failure, got %+v", msgs[1])
	}
	if msgs[2].Role != history.RoleSystem {
		t.Errorf("expected a failure notice, got %+v", msgs[2])
	}
}

func TestSendText_AppointmentBooked(t *testing.T) {
	t.Parallel()

	var subMu sync.Mutex
	var submissions []url.Values
	sheetServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		subMu.Lock()
		submissions = append(submissions, r.PostForm)
		subMu.Unlock()
	}))
	defer sheetServer.Close()

	target, _ := url.Parse(sheetServer.URL)
	httpClient := &http.Client{Transport: &rewriteTransport{target: target}}

	fake := &fakeChat{responses: []*gemini.Response{
		toolCallResponse(scheduleAppointmentName, map[string]any{
			"name":  "Ana",
			"email": "ana@example.com",
			"date":  "2026-09-15",
			"time":  "10:30",
		}),
		textResponse("Listo Ana, tu cita quedó agendada."),
	}}
	client := NewClient(
		WithAPIKey("test"),
		WithScriptURL("https://script.google.com/macros/s/AKfycbz123/exec"),
		WithHTTPClient(httpClient),
	)
	client.transport = fake

	reply, err := client.SendText(context.Background(), "Soy Ana, quiero una cita el 15")
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if !strings.Contains(reply, "agendada") {
		t.Errorf("reply = %q", reply)
	}

	subMu.Lock()
	var appointment url.Values
	for _, sub := range submissions {
		if sub.Get("type") == "Cita Consultoría (Voz/Chat)" {
			appointment = sub
		}
	}
	subMu.Unlock()
	if appointment == nil {
		t.Fatal("no appointment record was submitted")
	}
	if appointment.Get("name") != "Ana" || appointment.Get("date") != "2026-09-15" {
		t.Errorf("appointment fields = %v", appointment)
	}

	// Round two carries the tool result back to the model.
	second := fake.request(1)
	var sawResult bool
	for _, content := range second.Contents {
		for _, part := range content.Parts {
			if part.FunctionResponse != nil && part.FunctionResponse.Name == scheduleAppointmentName {
				if ok, _ := part.FunctionResponse.Response["success"].(bool); ok {
					sawResult = true
				}
			}
		}
	}
	if !sawResult {
		t.Error("tool result was not returned to the model")
	}

	msgs, _ := client.Messages(context.Background())
	var sawNotice bool
	for _, m := range msgs {
		if m.Role == history.RoleSystem && strings.Contains(m.Text, "2026-09-15") {
			sawNotice = true
		}
	}
	if !sawNotice {
		t.Error("expected a booking confirmation notice in the conversation")
	}
}

func TestSendText_RebuildAfterLanguageChange(t *testing.T) {
	t.Parallel()

	fake := &fakeChat{responses: []*gemini.Response{
		textResponse("Tres planes."),
		textResponse("Three plans."),
	}}
	client := NewClient(WithAPIKey("test"))
	client.transport = fake

	if _, err := client.SendText(context.Background(), "¿planes?"); err != nil {
		t.Fatalf("first turn: %v", err)
	}

	gen := client.Generation()
	client.SetLanguage("en")
	if client.Generation() == gen {
		t.Fatal("language change should move the generation counter")
	}

	if _, err := client.SendText(context.Background(), "plans?"); err != nil {
		t.Fatalf("second turn: %v", err)
	}

	second := fake.request(1)
	if !strings.Contains(second.SystemInstruction.Parts[0].Text, "Reply in English") {
		t.Error("rebuilt instruction should carry the new language directive")
	}
	// Rebuilt history: first user turn, first reply, new user turn.
	if len(second.Contents) != 3 {
		t.Errorf("rebuilt contents length = %d, want 3", len(second.Contents))
	}
}

func TestSetLanguage_RejectsUnknown(t *testing.T) {
	t.Parallel()

	client := NewClient(WithAPIKey("test"))
	gen := client.Generation()
	client.SetLanguage("fr")
	if client.Language() != "es" {
		t.Errorf("language = %q, want es", client.Language())
	}
	if client.Generation() != gen {
		t.Error("rejected language change should not move the generation")
	}
}

// rewriteTransport points requests at a test server while the client keeps
// its deployed-looking endpoint.
type rewriteTransport struct {
	target *url.URL
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.URL.Scheme = t.target.Scheme
	clone.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(clone)
}
