package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"walkie/internal/ports"
)

// FFPlayPlayback streams speaker PCM audio through ffplay's stdin.
type FFPlayPlayback struct {
	command string
}

func NewFFPlayPlayback(command string) *FFPlayPlayback {
	if command == "" {
		command = "ffplay"
	}
	return &FFPlayPlayback{command: command}
}

func (p *FFPlayPlayback) Start(ctx context.Context, cfg ports.PlaybackConfig) (ports.PlaybackSession, error) {
	if _, err := exec.LookPath(p.command); err != nil {
		return nil, fmt.Errorf("%w: %s not found in PATH", ErrDeviceUnavailable, p.command)
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}

	session := &playbackSession{ctx: ctx, command: p.command, cfg: cfg}
	if err := session.startLocked(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	return session, nil
}

type playbackSession struct {
	ctx     context.Context
	command string
	cfg     ports.PlaybackConfig

	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

func (s *playbackSession) startLocked() error {
	cmd := exec.CommandContext(s.ctx, s.command,
		"-nodisp",
		"-autoexit",
		"-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(s.cfg.SampleRate),
		"-ac", strconv.Itoa(s.cfg.Channels),
		"-i", "pipe:0",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to create %s stdin pipe: %w", s.command, err)
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", s.command, err)
	}
	s.cmd = cmd
	s.stdin = stdin
	return nil
}

func (s *playbackSession) Write(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stdin == nil {
		return errors.New("playback stream is closed")
	}
	_, err := s.stdin.Write(pcm)
	return err
}

// Reset drops any queued audio by restarting the player process.
func (s *playbackSession) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killLocked()
	return s.startLocked()
}

func (s *playbackSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killLocked()
	return nil
}

func (s *playbackSession) killLocked() {
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
	}
	s.cmd = nil
	s.stdin = nil
}
