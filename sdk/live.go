package sage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sagepoint-analytics/sage-go/pkg/core"
	"github.com/sagepoint-analytics/sage-go/pkg/core/audio"
	"github.com/sagepoint-analytics/sage-go/pkg/core/live/protocol"
)

const (
	liveBaseURL      = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	liveSetupTimeout = 15 * time.Second
	liveEventBuffer  = 256
)

// liveEvent is one decoded occurrence on the live connection. Events are
// delivered in wire order.
type liveEvent interface{ isLiveEvent() }

type setupCompleteEvent struct{}

type audioChunkEvent struct {
	data       []byte
	sampleRate int
}

type inputTranscriptEvent struct{ text string }

type outputTranscriptEvent struct{ text string }

type turnCompleteEvent struct{}

type interruptedEvent struct{}

type toolCallEvent struct{ calls []protocol.FunctionCall }

type goAwayEvent struct{ timeLeft string }

func (setupCompleteEvent) isLiveEvent()    {}
func (audioChunkEvent) isLiveEvent()       {}
func (inputTranscriptEvent) isLiveEvent()  {}
func (outputTranscriptEvent) isLiveEvent() {}
func (turnCompleteEvent) isLiveEvent()     {}
func (interruptedEvent) isLiveEvent()      {}
func (toolCallEvent) isLiveEvent()         {}
func (goAwayEvent) isLiveEvent()           {}

// liveSession is one websocket connection to the bidirectional endpoint.
// Reads happen on a single goroutine; writes are serialized by writeMu.
type liveSession struct {
	conn   *websocket.Conn
	events chan liveEvent
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error
}

// dialLive opens the connection, sends the setup frame, and waits for the
// server acknowledgment before returning.
func (c *Client) dialLive(ctx context.Context) (*liveSession, error) {
	endpoint := c.liveEndpoint
	if endpoint == "" {
		endpoint = liveBaseURL + "?key=" + c.apiKey
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, core.NewTransportError(fmt.Sprintf("live dial failed: %s (%s)", err, resp.Status))
		}
		return nil, core.NewTransportError(fmt.Sprintf("live dial failed: %s", err))
	}

	s := &liveSession{
		conn:   conn,
		events: make(chan liveEvent, liveEventBuffer),
		done:   make(chan struct{}),
	}

	instruction, _ := c.instructionContext()
	setup := protocol.ClientMessage{Setup: &protocol.Setup{
		Model: "models/" + c.liveModel,
		GenerationConfig: &protocol.GenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &protocol.SpeechConfig{
				VoiceConfig: &protocol.VoiceConfig{
					PrebuiltVoiceConfig: &protocol.PrebuiltVoiceConfig{VoiceName: c.voice},
				},
			},
		},
		SystemInstruction:        &protocol.Content{Parts: []protocol.Part{{Text: instruction}}},
		Tools:                    liveTools(),
		InputAudioTranscription:  &protocol.AudioTranscription{},
		OutputAudioTranscription: &protocol.AudioTranscription{},
	}}
	if err := s.writeJSON(setup); err != nil {
		s.close()
		return nil, err
	}

	go s.readLoop()

	// On an aborted setup the read loop may be blocked mid-emit; drain the
	// channel so it can observe the closed connection and exit.
	abort := func() {
		s.close()
		go func() {
			for range s.events {
			}
		}()
	}

	select {
	case ev, ok := <-s.events:
		if !ok {
			err := s.readErr()
			s.close()
			if err != nil {
				return nil, err
			}
			return nil, core.NewProtocolError("connection closed before setup completed")
		}
		if _, ok := ev.(setupCompleteEvent); !ok {
			abort()
			return nil, core.NewProtocolError(fmt.Sprintf("expected setup acknowledgment, got %T", ev))
		}
	case <-time.After(liveSetupTimeout):
		abort()
		return nil, core.NewTimeoutError("timed out waiting for setup acknowledgment")
	case <-ctx.Done():
		abort()
		return nil, ctx.Err()
	}

	return s, nil
}

// readLoop pumps server frames into the event channel until the connection
// drops. The channel close is the session-over signal for the consumer.
func (s *liveSession) readLoop() {
	defer close(s.events)
	defer close(s.done)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() {
				s.setErr(core.NewTransportError(fmt.Sprintf("live read failed: %s", err)))
			}
			return
		}

		events, err := decodeServerFrame(data)
		if err != nil {
			s.setErr(err)
			return
		}
		for _, ev := range events {
			s.emit(ev)
		}
	}
}

// emit enqueues an event, blocking when the consumer is behind. The
// consumer drains until channel close, so a slow tool round delays frames
// rather than losing them.
func (s *liveSession) emit(ev liveEvent) {
	s.events <- ev
}

// decodeServerFrame turns one wire frame into ordered events. Transcription
// fragments precede the turn-complete marker from the same frame.
func decodeServerFrame(data []byte) ([]liveEvent, error) {
	var msg protocol.ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, core.NewProtocolError(fmt.Sprintf("malformed server frame: %s", err))
	}

	var events []liveEvent
	if msg.SetupComplete != nil {
		events = append(events, setupCompleteEvent{})
	}
	if sc := msg.ServerContent; sc != nil {
		if sc.Interrupted {
			events = append(events, interruptedEvent{})
		}
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				if part.InlineData == nil {
					continue
				}
				raw, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					return nil, core.NewProtocolError(fmt.Sprintf("malformed inline audio: %s", err))
				}
				events = append(events, audioChunkEvent{
					data:       raw,
					sampleRate: audio.PlaybackSampleRate,
				})
			}
		}
		if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
			events = append(events, inputTranscriptEvent{text: sc.InputTranscription.Text})
		}
		if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
			events = append(events, outputTranscriptEvent{text: sc.OutputTranscription.Text})
		}
		if sc.TurnComplete {
			events = append(events, turnCompleteEvent{})
		}
	}
	if msg.ToolCall != nil && len(msg.ToolCall.FunctionCalls) > 0 {
		events = append(events, toolCallEvent{calls: msg.ToolCall.FunctionCalls})
	}
	if msg.GoAway != nil {
		events = append(events, goAwayEvent{timeLeft: msg.GoAway.TimeLeft})
	}
	return events, nil
}

// sendAudioFrame ships one encoded capture frame as a PCM media chunk.
func (s *liveSession) sendAudioFrame(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	return s.writeJSON(protocol.ClientMessage{RealtimeInput: &protocol.RealtimeInput{
		MediaChunks: []protocol.Blob{{
			MIMEType: fmt.Sprintf("audio/pcm;rate=%d", audio.CaptureSampleRate),
			Data:     base64.StdEncoding.EncodeToString(pcm),
		}},
	}})
}

// sendToolResponses returns tool results to the model.
func (s *liveSession) sendToolResponses(responses []protocol.FunctionResponse) error {
	return s.writeJSON(protocol.ClientMessage{ToolResponse: &protocol.ToolResponse{
		FunctionResponses: responses,
	}})
}

func (s *liveSession) writeJSON(v any) error {
	if s.closed.Load() {
		return core.NewInvalidRequestError("session is closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(v); err != nil {
		return core.NewTransportError(fmt.Sprintf("live write failed: %s", err))
	}
	return nil
}

func (s *liveSession) setErr(err error) {
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}

func (s *liveSession) readErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// close shuts the connection down. Safe to call more than once and from
// any goroutine.
func (s *liveSession) close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		deadline := time.Now().Add(time.Second)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = s.conn.Close()
	})
	return err
}
