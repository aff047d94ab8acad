package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"walkie/internal/audio"
	"walkie/internal/bootstrap"
	"walkie/internal/config"
	"walkie/internal/domain"
	"walkie/internal/ports"
	"walkie/internal/usecase"
)

// App runs one voice conversation from device startup to transcript flush.
type App struct {
	logger *slog.Logger
	out    io.Writer
}

func NewApp(out io.Writer, logger *slog.Logger) *App {
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{logger: logger, out: out}
}

// Run blocks until the conversation ends and returns the process exit code.
func (a *App) Run(ctx context.Context) int {
	events := &consoleSink{logger: a.logger, out: a.out}

	services, err := bootstrap.Build(events)
	if err != nil {
		events.SessionError(domain.ErrorCodeStartup, err.Error())
		return 1
	}
	cfg := services.Config

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	capture, err := services.Capture.Start(runCtx, ports.CaptureConfig{
		SampleRate:  cfg.Audio.SampleRate,
		Channels:    cfg.Audio.Channels,
		InputFormat: cfg.Audio.InputFormat,
		InputDevice: cfg.Audio.InputDevice,
	})
	if err != nil {
		events.SessionError(domain.ErrorCodeDevice, err.Error())
		if errors.Is(err, audio.ErrDeviceUnavailable) {
			a.reportInputDevices(runCtx, cfg)
		}
		return 1
	}

	player, err := services.Playback.Start(runCtx, ports.PlaybackConfig{
		SampleRate: cfg.Audio.PlaybackSampleRate,
		Channels:   cfg.Audio.Channels,
	})
	if err != nil {
		_ = capture.Stop()
		events.SessionError(domain.ErrorCodeDevice, err.Error())
		return 1
	}

	session, err := services.Dialer.StartSession(runCtx, ports.SessionConfig{
		AgentID:    cfg.ElevenLabs.AgentID,
		SampleRate: cfg.Audio.SampleRate,
	})
	if err != nil {
		_ = capture.Stop()
		_ = player.Close()
		events.SessionError(domain.ErrorCodeRemoteSession, err.Error())
		return 1
	}

	conversation := usecase.StartConversation(usecase.ConversationParams{
		Capture:   capture,
		Player:    player,
		Session:   session,
		Gate:      services.Gate,
		Tracker:   services.Tracker,
		Sink:      services.Sink,
		Closing:   services.Detector,
		Events:    events,
		FrameSize: cfg.Audio.FrameSize,
	})

	supervisor := usecase.NewSupervisor(
		session,
		services.Sink,
		events,
		a.logger,
		cfg.Session.EndTimeout,
		usecase.Hooks{
			OnInterrupt: conversation.SilencePlayback,
			Teardown:    conversation.Teardown,
		},
	)

	interrupts := make(chan os.Signal, 2)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)

	a.logger.Info("conversation started", "agent_id", cfg.ElevenLabs.AgentID)
	return supervisor.Run(runCtx, interrupts)
}

func (a *App) reportInputDevices(ctx context.Context, cfg config.Config) {
	devices := audio.ListInputDevices(ctx, cfg.Audio.RecorderCommand, cfg.Audio.InputFormat)
	if len(devices) == 0 {
		a.logger.Info("no capture devices detected", "input_format", cfg.Audio.InputFormat)
		return
	}
	for _, device := range devices {
		a.logger.Info("available capture device", "device", device)
	}
}

// consoleSink surfaces runtime events on the terminal: conversation text on
// stdout, everything else through the structured logger.
type consoleSink struct {
	logger *slog.Logger
	out    io.Writer
}

func (s *consoleSink) GateStateChanged(state domain.GateState, reason domain.GateReason) {
	s.logger.Debug("gate state changed", "state", state, "reason", reason)
}

func (s *consoleSink) SessionStateChanged(state domain.SessionState, reason domain.SessionReason) {
	s.logger.Info("session state changed", "state", state, "reason", reason)
}

func (s *consoleSink) AgentUtterance(text string) {
	fmt.Fprintf(s.out, "agent> %s\n", text)
}

func (s *consoleSink) UserUtterance(text string) {
	fmt.Fprintf(s.out, "you> %s\n", text)
}

func (s *consoleSink) ClosingPhrase(phrase string) {
	s.logger.Info("agent used a closing phrase", "phrase", phrase)
}

func (s *consoleSink) SessionError(code domain.ErrorCode, detail string) {
	s.logger.Error("session error", "code", code, "detail", detail)
}
