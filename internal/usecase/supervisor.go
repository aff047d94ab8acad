package usecase

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"walkie/internal/domain"
	"walkie/internal/ports"
)

const defaultEndTimeout = 2 * time.Second

var sessionStateRank = map[domain.SessionState]int{
	domain.SessionStateRunning:      0,
	domain.SessionStateShuttingDown: 1,
	domain.SessionStateTerminated:   2,
}

// Hooks lets the runtime react to lifecycle edges.
type Hooks struct {
	// OnInterrupt runs as soon as a shutdown request is accepted, before
	// the remote close begins. Used to silence queued playback.
	OnInterrupt func()
	// Teardown stops the local devices; it runs before the transcript
	// flush on every exit path.
	Teardown func()
}

// Supervisor owns the conversation lifecycle: it waits for the session to
// end, bounds the time a clean close may take, and guarantees the
// transcript is flushed exactly once before the process exits.
type Supervisor struct {
	session    ports.AgentSession
	sink       ports.TranscriptSink
	events     ports.EventSink
	logger     *slog.Logger
	endTimeout time.Duration
	hooks      Hooks

	mu    sync.Mutex
	state domain.SessionState
}

func NewSupervisor(
	session ports.AgentSession,
	sink ports.TranscriptSink,
	events ports.EventSink,
	logger *slog.Logger,
	endTimeout time.Duration,
	hooks Hooks,
) *Supervisor {
	if endTimeout <= 0 {
		endTimeout = defaultEndTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	if hooks.OnInterrupt == nil {
		hooks.OnInterrupt = func() {}
	}
	if hooks.Teardown == nil {
		hooks.Teardown = func() {}
	}
	return &Supervisor{
		session:    session,
		sink:       sink,
		events:     events,
		logger:     logger,
		endTimeout: endTimeout,
		hooks:      hooks,
		state:      domain.SessionStateRunning,
	}
}

// Run blocks until the conversation is over and returns the process exit
// code. The session ends either because the remote side closed it or
// because an interrupt (or context cancellation) requested shutdown.
func (s *Supervisor) Run(ctx context.Context, interrupts <-chan os.Signal) int {
	s.events.SessionStateChanged(domain.SessionStateRunning, domain.SessionReasonStarted)

	remoteDone := make(chan error, 1)
	go func() {
		_, err := s.session.WaitForSessionEnd()
		remoteDone <- err
	}()

	select {
	case err := <-remoteDone:
		s.transition(domain.SessionStateShuttingDown, domain.SessionReasonRemoteEnded)
		if err != nil {
			s.events.SessionError(domain.ErrorCodeRemoteSession, err.Error())
			return s.finish(domain.SessionReasonRemoteEnded, 1)
		}
		return s.finish(domain.SessionReasonRemoteEnded, 0)
	case <-interrupts:
	case <-ctx.Done():
	}

	s.transition(domain.SessionStateShuttingDown, domain.SessionReasonInterrupted)
	s.hooks.OnInterrupt()
	reason, code := s.endSessionBounded()
	return s.finish(reason, code)
}

// endSessionBounded races the provider's clean close against the shutdown
// deadline. A hung remote close never delays exit past the timeout.
func (s *Supervisor) endSessionBounded() (domain.SessionReason, int) {
	endDone := make(chan error, 1)
	go func() { endDone <- s.session.EndSession() }()

	select {
	case err := <-endDone:
		if err != nil {
			s.logger.Warn("session close reported an error", "error", err)
		}
		return domain.SessionReasonCleanShutdown, 0
	case <-time.After(s.endTimeout):
		_ = s.session.Close()
		return domain.SessionReasonForcedExit, 1
	}
}

// finish always tears the devices down and flushes the transcript before
// reporting the terminal state, regardless of how the session ended.
func (s *Supervisor) finish(reason domain.SessionReason, code int) int {
	s.hooks.Teardown()
	s.flushTranscript()
	s.transition(domain.SessionStateTerminated, reason)
	return code
}

// flushTranscript persists the recorded turns. Failures are logged and
// surfaced as events but never change the exit path; losing the artifact
// must not turn a clean shutdown into a hang or a crash.
func (s *Supervisor) flushTranscript() {
	path, err := s.sink.Flush()
	if err != nil {
		s.logger.Error("failed to write transcript", "error", err)
		s.events.SessionError(domain.ErrorCodeTranscriptFlush, err.Error())
		return
	}
	if path != "" {
		s.logger.Info("transcript saved", "path", path, "turns", s.sink.Len())
	}
}

// transition advances the lifecycle state. Transitions only move forward,
// which makes repeated interrupts and racing end paths harmless.
func (s *Supervisor) transition(state domain.SessionState, reason domain.SessionReason) bool {
	s.mu.Lock()
	advance := sessionStateRank[state] > sessionStateRank[s.state]
	if advance {
		s.state = state
	}
	s.mu.Unlock()

	if advance {
		s.events.SessionStateChanged(state, reason)
	}
	return advance
}

// State reports the current lifecycle state.
func (s *Supervisor) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
