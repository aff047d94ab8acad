package ports

import (
	"context"
	"errors"
	"io"

	"walkie/internal/domain"
)

// ErrSessionClosed is returned by AgentSession senders once the session is
// no longer accepting outbound data. It marks an orderly end, not a fault.
var ErrSessionClosed = errors.New("agent session closed")

// CaptureConfig describes how the microphone should be captured.
type CaptureConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// CaptureSession is a live microphone capture stream delivering s16le PCM.
type CaptureSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg CaptureConfig) (CaptureSession, error)
}

// PlaybackConfig describes how speaker playback should be opened.
type PlaybackConfig struct {
	SampleRate int
	Channels   int
}

// PlaybackSession is a live speaker playback stream consuming s16le PCM.
type PlaybackSession interface {
	// Write queues PCM for playback.
	Write(pcm []byte) error
	// Reset drops any queued audio immediately.
	Reset() error
	Close() error
}

// AudioPlayback creates speaker playback sessions.
type AudioPlayback interface {
	Start(ctx context.Context, cfg PlaybackConfig) (PlaybackSession, error)
}

// SessionConfig describes provider-agnostic agent session settings.
type SessionConfig struct {
	AgentID    string
	SampleRate int
}

// AgentSession is a live bidirectional conversation with the remote agent.
//
// EndSession and WaitForSessionEnd block without any inherent bound; callers
// that need bounded termination must race them against a timeout.
type AgentSession interface {
	// SendUserAudio forwards a chunk of captured user PCM to the agent.
	SendUserAudio(chunk []byte) error
	// Events delivers inbound agent events until the session ends.
	Events() <-chan domain.AgentEvent
	// EndSession requests a clean remote close and waits for it.
	EndSession() error
	// WaitForSessionEnd blocks until the remote ends the session and returns
	// the conversation id assigned by the remote service.
	WaitForSessionEnd() (string, error)
	// Close tears the session down without waiting for a clean remote close.
	Close() error
}

// AgentDialer starts remote agent sessions.
type AgentDialer interface {
	StartSession(ctx context.Context, cfg SessionConfig) (AgentSession, error)
}

// TranscriptSink records conversation turns and persists them on demand.
// It must be safe to call from the shutdown path after an error elsewhere.
type TranscriptSink interface {
	Append(speaker domain.Speaker, text string)
	SetConversationID(id string)
	// Len reports the number of recorded turns.
	Len() int
	// Flush persists all recorded turns and returns the artifact path.
	// Flushing an empty transcript is a no-op and returns an empty path.
	Flush() (string, error)
}

// EventSink surfaces runtime state to the operator. Events are purely
// informational and carry no control semantics.
type EventSink interface {
	GateStateChanged(state domain.GateState, reason domain.GateReason)
	SessionStateChanged(state domain.SessionState, reason domain.SessionReason)
	AgentUtterance(text string)
	UserUtterance(text string)
	ClosingPhrase(phrase string)
	SessionError(code domain.ErrorCode, detail string)
}
