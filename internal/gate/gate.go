// Package gate arbitrates between microphone capture and speaker playback so
// only one direction is hot at a time. Echo is suppressed by construction:
// the only window in which mic audio can reach the remote session is the
// listening state, which excludes agent playback and a trailing cooldown
// during which speaker reverberation may still be audible to the mic.
package gate

import (
	"sync"
	"time"

	"walkie/internal/domain"
	"walkie/internal/ports"
	"walkie/internal/vad"
)

// Config holds the gate timing parameters, fixed at construction.
type Config struct {
	// CalibrationDuration is the wall-clock window over which the noise
	// floor is measured before any audio is forwarded.
	CalibrationDuration time.Duration
	// SilenceDuration is the post-playback window during which the mic
	// stays muted to absorb speaker reverberation.
	SilenceDuration time.Duration
}

// Gate is the half-duplex state machine. Admit, PlaybackStarted and
// PlaybackStopped must all be called from a single goroutine (the audio
// pump); State may be read from anywhere.
type Gate struct {
	estimator *vad.Estimator
	cfg       Config
	events    ports.EventSink
	now       func() time.Time

	mu               sync.Mutex
	state            domain.GateState
	calibrationStart time.Time
	playbackStopped  time.Time
}

// New returns a gate in the calibrating state. The calibration window opens
// when the first frame arrives.
func New(estimator *vad.Estimator, cfg Config, events ports.EventSink) *Gate {
	if cfg.CalibrationDuration <= 0 {
		cfg.CalibrationDuration = 2 * time.Second
	}
	if cfg.SilenceDuration <= 0 {
		cfg.SilenceDuration = 800 * time.Millisecond
	}
	return &Gate{
		estimator: estimator,
		cfg:       cfg,
		events:    events,
		state:     domain.GateStateCalibrating,
		now:       time.Now,
	}
}

// State returns the current gate state.
func (g *Gate) State() domain.GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// NoiseFloor returns the calibrated ambient energy baseline, zero until
// calibration completes.
func (g *Gate) NoiseFloor() float64 {
	return g.estimator.NoiseFloor()
}

// Admit decides whether a captured frame is forwarded to the remote session.
// Dropped frames are discarded, never buffered.
func (g *Gate) Admit(frame []int16) bool {
	switch g.State() {
	case domain.GateStateCalibrating:
		g.calibrate(frame)
		return false
	case domain.GateStateAgentSpeaking:
		return false
	case domain.GateStateCooldown:
		if g.now().Sub(g.playbackStopped) < g.cfg.SilenceDuration {
			return false
		}
		g.setState(domain.GateStateListening, domain.GateReasonCooldownElapsed)
		return g.estimator.IsSpeech(frame)
	default:
		return g.estimator.IsSpeech(frame)
	}
}

// PlaybackStarted records that agent audio has become audible. Safe to call
// repeatedly while playback continues.
func (g *Gate) PlaybackStarted() {
	switch g.State() {
	case domain.GateStateListening:
		g.setState(domain.GateStateAgentSpeaking, domain.GateReasonPlaybackStarted)
	case domain.GateStateCooldown:
		// Cooldown is cancelled, not queued.
		g.setState(domain.GateStateAgentSpeaking, domain.GateReasonPlaybackResumed)
	}
}

// PlaybackStopped records that agent audio has drained. Safe to call
// repeatedly while the speaker is idle.
func (g *Gate) PlaybackStopped() {
	if g.State() != domain.GateStateAgentSpeaking {
		return
	}
	g.playbackStopped = g.now()
	g.setState(domain.GateStateCooldown, domain.GateReasonPlaybackFinished)
}

func (g *Gate) calibrate(frame []int16) {
	if g.calibrationStart.IsZero() {
		g.calibrationStart = g.now()
	}
	g.estimator.Observe(frame)
	if g.now().Sub(g.calibrationStart) < g.cfg.CalibrationDuration {
		return
	}
	g.estimator.FinishCalibration()
	g.setState(domain.GateStateListening, domain.GateReasonCalibrationComplete)
}

func (g *Gate) setState(state domain.GateState, reason domain.GateReason) {
	g.mu.Lock()
	g.state = state
	g.mu.Unlock()

	if g.events != nil {
		g.events.GateStateChanged(state, reason)
	}
}
