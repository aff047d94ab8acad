package usecase

import (
	"walkie/internal/ports"
)

// playbackTracker is the full horizon contract shared by the pump and the
// event loop; *audio.PlaybackTracker satisfies it.
type playbackTracker interface {
	playbackMonitor
	playbackHorizon
	Reset()
}

// ConversationParams collects the already-started collaborators for one
// live conversation.
type ConversationParams struct {
	Capture   ports.CaptureSession
	Player    ports.PlaybackSession
	Session   ports.AgentSession
	Gate      frameGate
	Tracker   playbackTracker
	Sink      ports.TranscriptSink
	Closing   closingMatcher
	Events    ports.EventSink
	FrameSize int
}

// Conversation runs the microphone pump and the agent event loop for a
// single session until torn down.
type Conversation struct {
	capture ports.CaptureSession
	player  ports.PlaybackSession
	tracker playbackTracker

	pumpDone   chan struct{}
	eventsDone chan struct{}
}

// StartConversation launches both loops. The caller remains responsible
// for ending the agent session; Teardown only stops the local devices.
func StartConversation(p ConversationParams) *Conversation {
	c := &Conversation{
		capture:    p.Capture,
		player:     p.Player,
		tracker:    p.Tracker,
		pumpDone:   make(chan struct{}),
		eventsDone: make(chan struct{}),
	}
	go pumpMicFrames(p.Capture, p.Session, p.Gate, p.Tracker, p.FrameSize, p.Events, c.pumpDone)
	go consumeAgentEvents(p.Session, p.Player, p.Tracker, p.Sink, p.Closing, p.Events, c.eventsDone)
	return c
}

// SilencePlayback drops queued agent audio immediately so an interrupt is
// not followed by seconds of lingering speech.
func (c *Conversation) SilencePlayback() {
	_ = c.player.Reset()
	c.tracker.Reset()
}

// Teardown stops the audio devices and waits for both loops to drain.
// Call it only after the agent session has ended, or the event loop will
// block on a live events channel.
func (c *Conversation) Teardown() {
	_ = c.capture.Stop()
	_ = c.player.Close()
	<-c.pumpDone
	<-c.eventsDone
}
