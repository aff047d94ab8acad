package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"walkie/internal/audio"
)

// Config stores runtime configuration for the voice agent.
type Config struct {
	ElevenLabs ElevenLabsConfig
	Audio      AudioConfig
	Gate       GateConfig
	Session    SessionConfig
	LogLevel   string
}

type ElevenLabsConfig struct {
	APIKey     string
	AgentID    string
	APIBaseURL string
}

type AudioConfig struct {
	RecorderCommand    string
	PlayerCommand      string
	InputFormat        string
	InputDevice        string
	SampleRate         int
	Channels           int
	FrameSize          int
	PlaybackSampleRate int
}

type GateConfig struct {
	VolumeThreshold     float64
	SilenceDuration     time.Duration
	CalibrationDuration time.Duration
}

type SessionConfig struct {
	EndTimeout      time.Duration
	ClosingKeywords []string
	TranscriptDir   string
}

// Load resolves configuration from a .env file (when present) and
// environment variables, with sensible defaults.
func Load() (Config, error) {
	// A missing .env file is the common case, not an error.
	_ = godotenv.Load()

	cfg := Config{
		ElevenLabs: ElevenLabsConfig{
			APIKey:     strings.TrimSpace(os.Getenv("ELEVENLABS_API_KEY")),
			AgentID:    strings.TrimSpace(os.Getenv("ELEVENLABS_AGENT_ID")),
			APIBaseURL: envOrDefault("ELEVENLABS_API_BASE", "https://api.elevenlabs.io"),
		},
		Audio: AudioConfig{
			RecorderCommand:    envOrDefault("WALKIE_FFMPEG_COMMAND", "ffmpeg"),
			PlayerCommand:      envOrDefault("WALKIE_FFPLAY_COMMAND", "ffplay"),
			InputFormat:        envOrDefault("WALKIE_AUDIO_INPUT_FORMAT", audio.DefaultInputFormat()),
			InputDevice:        envOrDefault("WALKIE_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:         envOrDefaultInt("WALKIE_SAMPLE_RATE", 16000),
			Channels:           envOrDefaultInt("WALKIE_CHANNELS", 1),
			FrameSize:          envOrDefaultInt("WALKIE_AUDIO_FRAME_SIZE", 4096),
			PlaybackSampleRate: envOrDefaultInt("WALKIE_PLAYBACK_SAMPLE_RATE", 16000),
		},
		Gate: GateConfig{
			VolumeThreshold:     envOrDefaultFloat("WALKIE_VOLUME_THRESHOLD", 0.02),
			SilenceDuration:     envOrDefaultMillis("WALKIE_SILENCE_MS", 800),
			CalibrationDuration: envOrDefaultMillis("WALKIE_CALIBRATION_MS", 2000),
		},
		Session: SessionConfig{
			EndTimeout:      envOrDefaultMillis("WALKIE_END_TIMEOUT_MS", 2000),
			ClosingKeywords: splitKeywords(os.Getenv("WALKIE_CLOSING_KEYWORDS")),
			TranscriptDir:   envOrDefault("WALKIE_TRANSCRIPT_DIR", "transcripts"),
		},
		LogLevel: envOrDefault("WALKIE_LOG_LEVEL", "info"),
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.FrameSize < 256 {
		cfg.Audio.FrameSize = 4096
	}
	if cfg.Audio.PlaybackSampleRate <= 0 {
		cfg.Audio.PlaybackSampleRate = cfg.Audio.SampleRate
	}
	if cfg.Gate.VolumeThreshold <= 0 {
		cfg.Gate.VolumeThreshold = 0.02
	}
	if cfg.Gate.SilenceDuration <= 0 {
		cfg.Gate.SilenceDuration = 800 * time.Millisecond
	}
	if cfg.Gate.CalibrationDuration <= 0 {
		cfg.Gate.CalibrationDuration = 2 * time.Second
	}
	if cfg.Session.EndTimeout <= 0 {
		cfg.Session.EndTimeout = 2 * time.Second
	}

	return cfg, nil
}

func splitKeywords(raw string) []string {
	var keywords []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			keywords = append(keywords, part)
		}
	}
	return keywords
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultMillis(key string, fallback int) time.Duration {
	ms := envOrDefaultInt(key, fallback)
	if ms < 0 {
		ms = fallback
	}
	return time.Duration(ms) * time.Millisecond
}
