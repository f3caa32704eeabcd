package sage

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"github.com/sagepoint-analytics/sage-go/pkg/core/audio"
	"github.com/sagepoint-analytics/sage-go/pkg/core/live/protocol"
	"github.com/sagepoint-analytics/sage-go/pkg/history"
	"github.com/sagepoint-analytics/sage-go/pkg/sheets"
)

// VoiceState is the lifecycle state of the live voice session.
type VoiceState int

const (
	StateClosed VoiceState = iota
	StateConnecting
	StateOpen
)

func (s VoiceState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// voiceController owns the live session lifecycle: capture, connection,
// playback, transcript accumulation, and the single teardown path every
// exit route funnels into.
type voiceController struct {
	client *Client

	mu      sync.Mutex
	state   VoiceState
	session *liveSession

	playback    *playbackQueue
	transcripts *transcriptBuffer
	volumeBits  atomic.Uint64
}

func newVoiceController(c *Client) *voiceController {
	return &voiceController{
		client:      c,
		playback:    newPlaybackQueue(c.playbackSink),
		transcripts: &transcriptBuffer{},
	}
}

func (v *voiceController) currentState() VoiceState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *voiceController) volume() float64 {
	return math.Float64frombits(v.volumeBits.Load())
}

func (v *voiceController) setVolume(level float64) {
	v.volumeBits.Store(math.Float64bits(level))
}

// start brings the session up: microphone first, then the connection. A
// call while a session is connecting or open is a no-op.
func (v *voiceController) start(ctx context.Context) error {
	v.mu.Lock()
	if v.state != StateClosed {
		v.mu.Unlock()
		return nil
	}
	v.state = StateConnecting
	v.mu.Unlock()

	c := v.client

	if c.capture != nil {
		if err := c.capture.Start(ctx); err != nil {
			c.logger.Error("microphone start failed", "error", err)
			c.systemNotice(ctx, v.micFailureText(err))
			v.teardown(ctx)
			return err
		}
	}

	session, err := c.dialLive(ctx)
	if err != nil {
		c.logger.Error("live connect failed", "error", err)
		c.systemNotice(ctx, c.ui().voiceFailed)
		v.teardown(ctx)
		return err
	}

	v.mu.Lock()
	v.session = session
	v.state = StateOpen
	v.mu.Unlock()

	if c.capture != nil {
		go v.pumpCapture(session)
	}
	go v.eventLoop(session)

	c.logger.Info("voice session open", "model", c.liveModel)
	return nil
}

func (v *voiceController) micFailureText(err error) string {
	ui := v.client.ui()
	switch {
	case errors.Is(err, ErrMicPermissionDenied):
		return ui.micDenied
	case errors.Is(err, ErrMicNotFound):
		return ui.micNotFound
	case errors.Is(err, ErrInsecureContext):
		return ui.micInsecure
	default:
		return ui.micGeneric
	}
}

// pumpCapture streams microphone frames to the connection until the source
// stops or a write fails. Each frame also refreshes the volume envelope.
func (v *voiceController) pumpCapture(session *liveSession) {
	capture := v.client.capture
	for {
		samples, err := capture.ReadFrame()
		if err != nil {
			return
		}
		pcm := audio.EncodePCM16(samples)
		if len(pcm) == 0 {
			continue
		}
		v.setVolume(audio.RMSEnvelope(pcm))
		if err := session.sendAudioFrame(pcm); err != nil {
			if !session.closed.Load() {
				v.client.logger.Error("audio frame send failed", "error", err)
			}
			return
		}
	}
}

// eventLoop consumes connection events in arrival order. The channel
// closing means the connection is gone, which ends the session.
func (v *voiceController) eventLoop(session *liveSession) {
	ctx := context.Background()
	c := v.client

	for ev := range session.events {
		if session.closed.Load() {
			// Drain without acting once teardown has begun.
			continue
		}
		switch ev := ev.(type) {
		case audioChunkEvent:
			buf, err := audio.DecodePCM16(ev.data, ev.sampleRate, audio.Channels)
			if err != nil {
				c.logger.Warn("dropping malformed audio chunk", "error", err)
				continue
			}
			v.playback.Schedule(buf)
		case inputTranscriptEvent:
			v.transcripts.AppendUser(ev.text)
		case outputTranscriptEvent:
			v.transcripts.AppendAssistant(ev.text)
		case turnCompleteEvent:
			v.flushTurn(ctx, false)
		case interruptedEvent:
			v.playback.Reset()
		case toolCallEvent:
			v.handleToolCalls(ctx, session, ev.calls)
		case goAwayEvent:
			c.logger.Info("server ending session", "time_left", ev.timeLeft)
		}
	}

	if err := session.readErr(); err != nil {
		c.logger.Error("voice session dropped", "error", err)
	}
	v.teardown(ctx)
}

func (v *voiceController) handleToolCalls(ctx context.Context, session *liveSession, calls []protocol.FunctionCall) {
	responses := make([]protocol.FunctionResponse, 0, len(calls))
	for _, call := range calls {
		result := v.client.resolveFunctionCall(ctx, call.Name, call.Args)
		responses = append(responses, protocol.FunctionResponse{
			ID:       call.ID,
			Name:     call.Name,
			Response: result,
		})
	}
	if err := session.sendToolResponses(responses); err != nil {
		v.client.logger.Error("tool response send failed", "error", err)
	}
}

// flushTurn persists the accumulated transcripts as conversation messages
// and logs the exchange. Partial marks a flush forced by teardown rather
// than by a completed turn.
func (v *voiceController) flushTurn(ctx context.Context, partial bool) {
	user, assistant := v.transcripts.Flush()
	if user == "" && assistant == "" {
		return
	}

	c := v.client
	if user != "" {
		msg := history.NewMessage(history.RoleUser, user)
		msg.Partial = partial
		c.appendMessage(ctx, msg)
	}
	if assistant != "" {
		msg := history.NewMessage(history.RoleAssistant, assistant)
		msg.Partial = partial
		c.appendMessage(ctx, msg)
	}

	// A one-sided turn still lands in the conversation, but only a full
	// exchange is worth a log row.
	if user != "" && assistant != "" {
		recordType := sheets.RecordTypeVoiceLog
		if partial {
			recordType = sheets.RecordTypeVoicePartial
		}
		c.logExchange(recordType, user, assistant)
	}
}

// teardown is the single exit path for a voice session. Every step runs
// regardless of earlier failures, and repeat calls are no-ops.
func (v *voiceController) teardown(ctx context.Context) {
	v.mu.Lock()
	if v.state == StateClosed && v.session == nil {
		v.mu.Unlock()
		return
	}
	session := v.session
	v.session = nil
	v.state = StateClosed
	v.mu.Unlock()

	c := v.client

	// Stop the event loop from accumulating further fragments before the
	// flush, so nothing lands in the buffer after it is drained.
	if session != nil {
		session.closed.Store(true)
	}
	v.flushTurn(ctx, true)
	v.playback.Reset()

	if c.capture != nil {
		if err := c.capture.Stop(); err != nil {
			c.logger.Warn("capture stop failed", "error", err)
		}
	}

	if session != nil {
		if err := session.close(); err != nil {
			c.logger.Warn("connection close failed", "error", err)
		}
		// The read loop exits once the connection drops; after this point
		// no further events can arrive.
		<-session.done
	}

	v.setVolume(0)
	c.logger.Info("voice session closed")
}
