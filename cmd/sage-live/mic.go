package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sync"

	"github.com/sagepoint-analytics/sage-go/pkg/core/audio"
	"github.com/sagepoint-analytics/sage-go/sdk"
)

// ffmpegCapture feeds microphone audio from an ffmpeg subprocess: mono
// s16le at the capture rate on stdout, sliced into fixed frames.
type ffmpegCapture struct {
	device string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
	reader *bufio.Reader
}

var _ sage.CaptureSource = (*ffmpegCapture)(nil)

func newFFmpegCapture(device string) *ffmpegCapture {
	return &ffmpegCapture{device: device}
}

// micArgs picks the ffmpeg input flags for the host platform.
func (c *ffmpegCapture) micArgs() []string {
	input := []string{"-f", "alsa", "-i", "default"}
	if runtime.GOOS == "darwin" {
		// `none:<index>` keeps ffmpeg away from the camera.
		input = []string{"-f", "avfoundation", "-i", "none:0"}
	}
	if c.device != "" {
		input[3] = c.device
	}
	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, input...)
	return append(args,
		"-ac", fmt.Sprintf("%d", audio.Channels),
		"-ar", fmt.Sprintf("%d", audio.CaptureSampleRate),
		"-f", "s16le",
		"-",
	)
}

func (c *ffmpegCapture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd != nil {
		return nil
	}

	cmd := exec.Command("ffmpeg", c.micArgs()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		_ = stdout.Close()
		return sage.ErrMicNotFound
	}

	c.cmd = cmd
	c.stdout = stdout
	c.reader = bufio.NewReaderSize(stdout, 64*1024)
	return nil
}

func (c *ffmpegCapture) ReadFrame() ([]float32, error) {
	c.mu.Lock()
	reader := c.reader
	c.mu.Unlock()
	if reader == nil {
		return nil, io.EOF
	}

	raw := make([]byte, audio.FrameSamples*2)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return nil, err
	}
	buf, err := audio.DecodePCM16(raw, audio.CaptureSampleRate, audio.Channels)
	if err != nil {
		return nil, err
	}
	return buf.Samples, nil
}

func (c *ffmpegCapture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd == nil {
		return nil
	}
	_ = c.stdout.Close()
	_ = c.cmd.Process.Kill()
	_, _ = c.cmd.Process.Wait()
	c.cmd = nil
	c.stdout = nil
	c.reader = nil
	return nil
}
