package usecase

import (
	"walkie/internal/domain"
	"walkie/internal/ports"
)

// playbackHorizon accounts for queued speaker audio so the gate can tell
// when the agent stops being audible.
type playbackHorizon interface {
	Add(n int)
}

// closingMatcher flags utterances that sound like the end of the call.
type closingMatcher interface {
	Match(text string) (string, bool)
}

func consumeAgentEvents(
	session ports.AgentSession,
	player ports.PlaybackSession,
	horizon playbackHorizon,
	sink ports.TranscriptSink,
	closing closingMatcher,
	events ports.EventSink,
	done chan struct{},
) {
	defer close(done)

	for event := range session.Events() {
		switch event.Kind {
		case domain.AgentEventConversationStarted:
			sink.SetConversationID(event.Text)
		case domain.AgentEventAudio:
			if err := player.Write(event.Audio); err != nil {
				events.SessionError(domain.ErrorCodeAudioStream, "failed to queue agent audio for playback")
				continue
			}
			horizon.Add(len(event.Audio))
		case domain.AgentEventAgentUtterance:
			sink.Append(domain.SpeakerAgent, event.Text)
			events.AgentUtterance(event.Text)
			if phrase, ok := closing.Match(event.Text); ok {
				events.ClosingPhrase(phrase)
			}
		case domain.AgentEventUserTranscript:
			sink.Append(domain.SpeakerUser, event.Text)
			events.UserUtterance(event.Text)
		}
	}
}
