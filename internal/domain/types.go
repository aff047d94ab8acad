package domain

// GateState models the half-duplex microphone/speaker arbitration.
// Only one direction is hot at a time; microphone audio reaches the remote
// session exclusively while the gate is listening.
type GateState string

const (
	GateStateCalibrating   GateState = "calibrating"
	GateStateListening     GateState = "listening"
	GateStateAgentSpeaking GateState = "agent_speaking"
	GateStateCooldown      GateState = "cooldown"
)

// GateReason provides a structured reason for gate transitions.
type GateReason string

const (
	GateReasonCalibrationComplete GateReason = "calibration_complete"
	GateReasonPlaybackStarted     GateReason = "playback_started"
	GateReasonPlaybackResumed     GateReason = "playback_resumed"
	GateReasonPlaybackFinished    GateReason = "playback_finished"
	GateReasonCooldownElapsed     GateReason = "cooldown_elapsed"
)

// SessionState models the conversation lifecycle. Transitions only move
// forward; shutting_down is entered at most once.
type SessionState string

const (
	SessionStateRunning      SessionState = "running"
	SessionStateShuttingDown SessionState = "shutting_down"
	SessionStateTerminated   SessionState = "terminated"
)

// SessionReason provides a structured reason for session state transitions.
type SessionReason string

const (
	SessionReasonStarted       SessionReason = "conversation_started"
	SessionReasonRemoteEnded   SessionReason = "remote_session_ended"
	SessionReasonInterrupted   SessionReason = "operator_interrupt"
	SessionReasonCleanShutdown SessionReason = "clean_shutdown"
	SessionReasonForcedExit    SessionReason = "end_session_timeout"
)

// ErrorCode identifies non-fatal and fatal runtime errors.
type ErrorCode string

const (
	ErrorCodeStartup         ErrorCode = "startup"
	ErrorCodeDevice          ErrorCode = "device_unavailable"
	ErrorCodeAudioStream     ErrorCode = "audio_stream"
	ErrorCodeRemoteSession   ErrorCode = "remote_session"
	ErrorCodeTranscriptFlush ErrorCode = "transcript_flush"
)

// Speaker identifies who produced a transcript turn.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

// AgentEventKind identifies an event delivered by the remote agent session.
type AgentEventKind string

const (
	// AgentEventConversationStarted carries the remote conversation id in Text.
	AgentEventConversationStarted AgentEventKind = "conversation_started"
	// AgentEventAudio carries a chunk of agent speech PCM in Audio.
	AgentEventAudio AgentEventKind = "audio"
	// AgentEventAgentUtterance carries finalized agent speech text.
	AgentEventAgentUtterance AgentEventKind = "agent_utterance"
	// AgentEventUserTranscript carries the remote transcription of user speech.
	AgentEventUserTranscript AgentEventKind = "user_transcript"
)

// AgentEvent is a single inbound message from the remote agent session.
type AgentEvent struct {
	Kind  AgentEventKind
	Text  string
	Audio []byte
}
