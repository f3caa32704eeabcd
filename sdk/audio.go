package sage

import (
	"context"

	"github.com/sagepoint-analytics/sage-go/pkg/core/audio"
)

// CaptureSource supplies microphone audio for a voice session. Frames are
// mono float32 samples at audio.CaptureSampleRate.
//
// Start may fail before any audio is produced; implementations should
// return ErrMicPermissionDenied, ErrMicNotFound, or ErrInsecureContext
// when the failure maps to one of those conditions so the client can show
// a specific message.
type CaptureSource interface {
	// Start acquires the underlying device. It is called once per session.
	Start(ctx context.Context) error

	// ReadFrame blocks until a frame of up to audio.FrameSamples samples is
	// available. It returns an error once the source is stopped.
	ReadFrame() ([]float32, error)

	// Stop releases the device. Safe to call more than once.
	Stop() error
}

// PlaybackSink receives decoded model audio in arrival order. Buffers are
// mono at audio.PlaybackSampleRate; Play should not block for the duration
// of the audio.
type PlaybackSink interface {
	Play(buf *audio.Buffer)
}
