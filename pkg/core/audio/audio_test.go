package audio

import (
	"math"
	"testing"

	"github.com/sagepoint-analytics/sage-go/pkg/core"
)

func TestEncodePCM16_Empty(t *testing.T) {
	t.Parallel()

	if got := EncodePCM16(nil); len(got) != 0 {
		t.Errorf("EncodePCM16(nil) = %d bytes, want 0", len(got))
	}
	if got := EncodePCM16([]float32{}); len(got) != 0 {
		t.Errorf("EncodePCM16(empty) = %d bytes, want 0", len(got))
	}
}

func TestEncodePCM16_Clamps(t *testing.T) {
	t.Parallel()

	payload := EncodePCM16([]float32{2.0, -2.0})
	buf, err := DecodePCM16(payload, CaptureSampleRate, Channels)
	if err != nil {
		t.Fatalf("DecodePCM16() error = %v", err)
	}
	if buf.Samples[0] < 0.99 {
		t.Errorf("clamped positive sample = %v, want ~1", buf.Samples[0])
	}
	if buf.Samples[1] > -0.99 {
		t.Errorf("clamped negative sample = %v, want ~-1", buf.Samples[1])
	}
}

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()

	in := make([]float32, FrameSamples)
	for i := range in {
		in[i] = float32(math.Sin(float64(i) / 64.0))
	}

	payload := EncodePCM16(in)
	if len(payload) != len(in)*2 {
		t.Fatalf("payload = %d bytes, want %d", len(payload), len(in)*2)
	}

	buf, err := DecodePCM16(payload, CaptureSampleRate, Channels)
	if err != nil {
		t.Fatalf("DecodePCM16() error = %v", err)
	}
	if len(buf.Samples) != len(in) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Samples), len(in))
	}

	// Quantization error is bounded by one 16-bit step.
	const step = 1.0 / 32767.0
	for i := range in {
		if diff := math.Abs(float64(in[i]) - float64(buf.Samples[i])); diff > step {
			t.Fatalf("sample %d differs by %v, want <= %v", i, diff, step)
		}
	}
}

func TestDecodePCM16_OddLength(t *testing.T) {
	t.Parallel()

	_, err := DecodePCM16([]byte{0x01, 0x02, 0x03}, PlaybackSampleRate, Channels)
	if !core.IsType(err, core.ErrProtocol) {
		t.Fatalf("DecodePCM16(odd payload) error = %v, want protocol_error", err)
	}
}

func TestBufferDuration(t *testing.T) {
	t.Parallel()

	buf := &Buffer{
		Samples:    make([]float32, PlaybackSampleRate),
		SampleRate: PlaybackSampleRate,
		Channels:   Channels,
	}
	if got := buf.Duration().Seconds(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Duration() = %vs, want 1s", got)
	}
}

func TestRMSEnergy(t *testing.T) {
	t.Parallel()

	if got := RMSEnergy(nil); got != 0 {
		t.Errorf("RMSEnergy(nil) = %v, want 0", got)
	}

	silence := EncodePCM16(make([]float32, FrameSamples))
	if got := RMSEnergy(silence); got != 0 {
		t.Errorf("RMSEnergy(silence) = %v, want 0", got)
	}

	half := make([]float32, FrameSamples)
	for i := range half {
		half[i] = 0.5
	}
	got := RMSEnergy(EncodePCM16(half))
	if math.Abs(got-0.5) > 0.01 {
		t.Errorf("RMSEnergy(0.5) = %v, want ~0.5", got)
	}
}

func TestRMSEnvelope(t *testing.T) {
	t.Parallel()

	if got := RMSEnvelope(nil); got != 0 {
		t.Errorf("RMSEnvelope(nil) = %v, want 0", got)
	}

	silence := EncodePCM16(make([]float32, FrameSamples))
	if got := RMSEnvelope(silence); got != 0 {
		t.Errorf("RMSEnvelope(silence) = %v, want 0", got)
	}

	loud := make([]float32, FrameSamples)
	for i := range loud {
		loud[i] = 1
	}
	if got := RMSEnvelope(EncodePCM16(loud)); got != 1 {
		t.Errorf("RMSEnvelope(full scale) = %v, want clamp to 1", got)
	}

	quiet := make([]float32, FrameSamples)
	for i := range quiet {
		quiet[i] = 0.1
	}
	got := RMSEnvelope(EncodePCM16(quiet))
	if math.Abs(got-0.5) > 0.01 {
		t.Errorf("RMSEnvelope(0.1) = %v, want ~0.5", got)
	}
}

func TestPCMToWAV_Header(t *testing.T) {
	t.Parallel()

	pcm := EncodePCM16([]float32{0, 0.5, -0.5, 0})
	wav := PCMToWAV(pcm, PlaybackSampleRate, 16, 1)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("wav length = %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Errorf("wav header magic = %q %q, want RIFF WAVE", wav[0:4], wav[8:12])
	}
}
