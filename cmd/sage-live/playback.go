package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/sagepoint-analytics/sage-go/pkg/core/audio"
	"github.com/sagepoint-analytics/sage-go/sdk"
)

// ffplaySink plays model audio through an ffplay subprocess reading s16le
// from stdin. The process starts on first use and is reused across turns.
type ffplaySink struct {
	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

var _ sage.PlaybackSink = (*ffplaySink)(nil)

func (s *ffplaySink) ensureStarted() error {
	if s.cmd != nil {
		return nil
	}

	// ffplay takes `-ch_layout`, not ffmpeg's `-ac`.
	cmd := exec.Command("ffplay",
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-nodisp",
		"-f", "s16le",
		"-ch_layout", "mono",
		"-ar", fmt.Sprintf("%d", audio.PlaybackSampleRate),
		"-i", "-",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return err
	}

	s.cmd = cmd
	s.stdin = stdin
	go func(c *exec.Cmd) {
		_ = c.Wait()
		s.mu.Lock()
		if s.cmd == c {
			s.cmd = nil
			s.stdin = nil
		}
		s.mu.Unlock()
	}(cmd)
	return nil
}

func (s *ffplaySink) Play(buf *audio.Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureStarted(); err != nil {
		fmt.Fprintf(os.Stderr, "ffplay start failed: %v\n", err)
		return
	}
	if _, err := s.stdin.Write(audio.EncodePCM16(buf.Samples)); err != nil {
		fmt.Fprintf(os.Stderr, "ffplay write failed: %v\n", err)
	}
}

func (s *ffplaySink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil {
		return
	}
	_ = s.stdin.Close()
	_ = s.cmd.Process.Kill()
	_, _ = s.cmd.Process.Wait()
	s.cmd = nil
	s.stdin = nil
}
