package bootstrap

import (
	"errors"

	"walkie/internal/audio"
	"walkie/internal/closing"
	"walkie/internal/config"
	"walkie/internal/gate"
	"walkie/internal/ports"
	"walkie/internal/providers/elevenlabs"
	"walkie/internal/transcript"
	"walkie/internal/vad"
)

// Services is the assembled runtime graph. The devices and the remote
// session are started later, once a context is available.
type Services struct {
	Config   config.Config
	Capture  ports.AudioCapture
	Playback ports.AudioPlayback
	Dialer   ports.AgentDialer
	Sink     ports.TranscriptSink
	Gate     *gate.Gate
	Tracker  *audio.PlaybackTracker
	Detector *closing.Detector
}

// Build wires all backend dependencies for the current runtime.
func Build(events ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	if cfg.ElevenLabs.AgentID == "" {
		return Services{}, errors.New("ELEVENLABS_AGENT_ID is required")
	}

	estimator := vad.NewEstimator(cfg.Gate.VolumeThreshold)
	audioGate := gate.New(estimator, gate.Config{
		CalibrationDuration: cfg.Gate.CalibrationDuration,
		SilenceDuration:     cfg.Gate.SilenceDuration,
	}, events)

	return Services{
		Config:   cfg,
		Capture:  audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand),
		Playback: audio.NewFFPlayPlayback(cfg.Audio.PlayerCommand),
		Dialer: elevenlabs.NewProvider(elevenlabs.Config{
			APIKey:     cfg.ElevenLabs.APIKey,
			AgentID:    cfg.ElevenLabs.AgentID,
			APIBaseURL: cfg.ElevenLabs.APIBaseURL,
		}),
		Sink:     transcript.NewFileSink(cfg.Session.TranscriptDir, cfg.ElevenLabs.AgentID),
		Gate:     audioGate,
		Tracker:  audio.NewPlaybackTracker(cfg.Audio.PlaybackSampleRate, cfg.Audio.Channels),
		Detector: closing.NewDetector(cfg.Session.ClosingKeywords),
	}, nil
}
