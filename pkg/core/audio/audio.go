// Package audio converts between float sample buffers and the raw 16-bit
// little-endian PCM frames exchanged with the live conversational endpoint.
package audio

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/sagepoint-analytics/sage-go/pkg/core"
)

const (
	// CaptureSampleRate is the fixed microphone capture rate.
	CaptureSampleRate = 16000

	// PlaybackSampleRate is the fixed synthesis playback rate. The endpoint
	// deliberately synthesizes at a higher rate than it captures.
	PlaybackSampleRate = 24000

	// Channels is the channel count on both directions (mono).
	Channels = 1

	// FrameSamples is the per-callback capture frame size.
	FrameSamples = 4096

	bytesPerSample = 2
)

// Buffer holds decoded samples plus the format needed to play them back.
type Buffer struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Duration returns the playback duration of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	frames := len(b.Samples) / b.Channels
	return time.Duration(frames) * time.Second / time.Duration(b.SampleRate)
}

// EncodePCM16 quantizes float amplitudes in [-1, 1] to 16-bit little-endian
// linear PCM. Values outside the range are clamped. Empty input yields an
// empty payload. The function allocates only the output slice; it runs once
// per capture callback tick.
func EncodePCM16(samples []float32) []byte {
	if len(samples) == 0 {
		return nil
	}
	out := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(v))
	}
	return out
}

// DecodePCM16 deserializes a 16-bit little-endian PCM payload into a playable
// buffer. Fails with a protocol error when the payload length is not a
// multiple of the sample frame size.
func DecodePCM16(payload []byte, sampleRate, channels int) (*Buffer, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, core.NewInvalidRequestError("sample rate and channel count must be positive")
	}
	frameSize := bytesPerSample * channels
	if len(payload)%frameSize != 0 {
		return nil, core.NewProtocolError("pcm payload length is not a multiple of the frame size")
	}
	samples := make([]float32, len(payload)/bytesPerSample)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(payload[i*bytesPerSample:]))
		samples[i] = float32(v) / 32768.0
	}
	return &Buffer{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
	}, nil
}

// RMSEnvelope computes a UI volume envelope for one encoded capture frame:
// the root-mean-square energy of the payload, scaled by 5 and clamped to
// [0, 1].
func RMSEnvelope(pcm []byte) float64 {
	rms := RMSEnergy(pcm) * 5
	if rms > 1 {
		return 1
	}
	return rms
}

// RMSEnergy computes the raw root-mean-square energy of a 16-bit
// little-endian PCM payload, in [0, 1].
func RMSEnergy(pcm []byte) float64 {
	samples := len(pcm) / bytesPerSample
	if samples == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+1 < len(pcm); i += bytesPerSample {
		sample := int16(pcm[i]) | int16(pcm[i+1])<<8
		normalized := float64(sample) / 32768.0
		sum += normalized * normalized
	}
	return math.Sqrt(sum / float64(samples))
}

// PCMToWAV wraps raw PCM audio with a WAV header, for saving model audio to
// disk or feeding players that refuse headerless streams.
func PCMToWAV(pcmData []byte, sampleRate, bitsPerSample, channels int) []byte {
	dataLen := len(pcmData)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	// WAV header is 44 bytes
	header := make([]byte, 44)

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(bitsPerSample))

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))

	return append(header, pcmData...)
}
