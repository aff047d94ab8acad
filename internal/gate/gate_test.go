package gate

import (
	"sync"
	"testing"
	"time"

	"walkie/internal/domain"
	"walkie/internal/vad"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingSink struct {
	mu          sync.Mutex
	transitions []domain.GateReason
}

func (s *recordingSink) GateStateChanged(_ domain.GateState, reason domain.GateReason) {
	s.mu.Lock()
	s.transitions = append(s.transitions, reason)
	s.mu.Unlock()
}

func (s *recordingSink) SessionStateChanged(domain.SessionState, domain.SessionReason) {}
func (s *recordingSink) AgentUtterance(string)                                        {}
func (s *recordingSink) UserUtterance(string)                                         {}
func (s *recordingSink) ClosingPhrase(string)                                         {}
func (s *recordingSink) SessionError(domain.ErrorCode, string)                        {}

func (s *recordingSink) reasons() []domain.GateReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.GateReason(nil), s.transitions...)
}

func loudFrame() []int16 {
	frame := make([]int16, 160)
	for i := range frame {
		frame[i] = 8000
	}
	return frame
}

func quietFrame() []int16 {
	return make([]int16, 160)
}

// newTestGate returns a gate driven by a fake clock, with calibration
// already completed so the gate starts out listening.
func newTestGate(t *testing.T, cfg Config, sink *recordingSink) (*Gate, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	g := New(vad.NewEstimator(0.02), cfg, sink)
	g.now = clock.Now

	if g.Admit(quietFrame()) {
		t.Fatalf("calibration frame must never be forwarded")
	}
	clock.Advance(cfg.CalibrationDuration + time.Millisecond)
	if g.Admit(quietFrame()) {
		t.Fatalf("calibration frame must never be forwarded")
	}
	if g.State() != domain.GateStateListening {
		t.Fatalf("expected listening after calibration, got %s", g.State())
	}
	return g, clock
}

func TestCalibrationRunsOnceBeforeListening(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	clock := newFakeClock()
	g := New(vad.NewEstimator(0.02), Config{CalibrationDuration: 2 * time.Second, SilenceDuration: 800 * time.Millisecond}, sink)
	g.now = clock.Now

	if g.State() != domain.GateStateCalibrating {
		t.Fatalf("expected calibrating, got %s", g.State())
	}

	// Frames inside the window are observed, never forwarded, even if loud.
	for i := 0; i < 5; i++ {
		if g.Admit(loudFrame()) {
			t.Fatalf("frame forwarded during calibration")
		}
		clock.Advance(250 * time.Millisecond)
	}
	if g.State() != domain.GateStateCalibrating {
		t.Fatalf("calibration ended early")
	}

	clock.Advance(time.Second)
	if g.Admit(quietFrame()) {
		t.Fatalf("closing calibration frame forwarded")
	}
	if g.State() != domain.GateStateListening {
		t.Fatalf("expected listening, got %s", g.State())
	}
	if g.NoiseFloor() < 0 {
		t.Fatalf("noise floor must be non-negative, got %v", g.NoiseFloor())
	}

	reasons := sink.reasons()
	if len(reasons) != 1 || reasons[0] != domain.GateReasonCalibrationComplete {
		t.Fatalf("expected single calibration_complete transition, got %v", reasons)
	}
}

func TestListeningForwardsOnlySpeechFrames(t *testing.T) {
	t.Parallel()

	g, _ := newTestGate(t, Config{CalibrationDuration: time.Second, SilenceDuration: 800 * time.Millisecond}, &recordingSink{})

	forwarded := 0
	for i := 0; i < 10; i++ {
		if g.Admit(quietFrame()) {
			forwarded++
		}
	}
	if forwarded != 0 {
		t.Fatalf("quiet frames forwarded: %d", forwarded)
	}
	if !g.Admit(loudFrame()) {
		t.Fatalf("loud frame dropped while listening")
	}
}

func TestAgentSpeakingMutesRegardlessOfEnergy(t *testing.T) {
	t.Parallel()

	g, _ := newTestGate(t, Config{CalibrationDuration: time.Second, SilenceDuration: 800 * time.Millisecond}, &recordingSink{})

	g.PlaybackStarted()
	if g.State() != domain.GateStateAgentSpeaking {
		t.Fatalf("expected agent_speaking, got %s", g.State())
	}
	for i := 0; i < 3; i++ {
		if g.Admit(loudFrame()) {
			t.Fatalf("frame forwarded while agent speaking")
		}
	}

	// Repeated start notifications are idempotent.
	g.PlaybackStarted()
	if g.State() != domain.GateStateAgentSpeaking {
		t.Fatalf("repeated start changed state to %s", g.State())
	}
}

func TestCooldownMutesUntilSilenceElapses(t *testing.T) {
	t.Parallel()

	cfg := Config{CalibrationDuration: time.Second, SilenceDuration: 800 * time.Millisecond}
	g, clock := newTestGate(t, cfg, &recordingSink{})

	g.PlaybackStarted()
	g.PlaybackStopped()
	if g.State() != domain.GateStateCooldown {
		t.Fatalf("expected cooldown, got %s", g.State())
	}

	clock.Advance(400 * time.Millisecond)
	if g.Admit(loudFrame()) {
		t.Fatalf("frame forwarded during cooldown")
	}

	clock.Advance(500 * time.Millisecond)
	if !g.Admit(loudFrame()) {
		t.Fatalf("loud frame dropped after cooldown elapsed")
	}
	if g.State() != domain.GateStateListening {
		t.Fatalf("expected listening, got %s", g.State())
	}
}

func TestPlaybackRestartDuringCooldownSkipsListening(t *testing.T) {
	t.Parallel()

	cfg := Config{CalibrationDuration: time.Second, SilenceDuration: 800 * time.Millisecond}
	sink := &recordingSink{}
	g, clock := newTestGate(t, cfg, sink)

	g.PlaybackStarted()
	g.PlaybackStopped()
	clock.Advance(300 * time.Millisecond)
	g.PlaybackStarted()

	if g.State() != domain.GateStateAgentSpeaking {
		t.Fatalf("expected agent_speaking after restart, got %s", g.State())
	}
	if g.Admit(loudFrame()) {
		t.Fatalf("mic unmuted across playback restart")
	}

	for _, reason := range sink.reasons() {
		if reason == domain.GateReasonCooldownElapsed {
			t.Fatalf("gate passed through listening during restart: %v", sink.reasons())
		}
	}
}

func TestQuietRunThenLoudFrameForwardsOnlyLoud(t *testing.T) {
	t.Parallel()

	g, _ := newTestGate(t, Config{CalibrationDuration: time.Second, SilenceDuration: 800 * time.Millisecond}, &recordingSink{})

	for i := 0; i < 10; i++ {
		if g.Admit(quietFrame()) {
			t.Fatalf("quiet frame %d forwarded", i)
		}
	}
	if !g.Admit(loudFrame()) {
		t.Fatalf("11th loud frame dropped")
	}
}

func TestPlaybackStoppedWhileListeningIsNoOp(t *testing.T) {
	t.Parallel()

	g, _ := newTestGate(t, Config{CalibrationDuration: time.Second, SilenceDuration: 800 * time.Millisecond}, &recordingSink{})

	g.PlaybackStopped()
	if g.State() != domain.GateStateListening {
		t.Fatalf("stop while listening changed state to %s", g.State())
	}
}
