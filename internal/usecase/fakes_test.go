package usecase

import (
	"sync"

	"walkie/internal/domain"
)

type fakeAgentSession struct {
	events chan domain.AgentEvent

	mu         sync.Mutex
	sent       [][]byte
	sendErr    error
	endErr     error
	endBlock   chan struct{}
	endCalls   int
	closeCalls int

	waitErr error
	done    chan struct{}
	once    sync.Once
}

func newFakeAgentSession() *fakeAgentSession {
	return &fakeAgentSession{
		events: make(chan domain.AgentEvent, 16),
		done:   make(chan struct{}),
	}
}

func (f *fakeAgentSession) SendUserAudio(chunk []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	f.sent = append(f.sent, buf)
	return nil
}

func (f *fakeAgentSession) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeAgentSession) Events() <-chan domain.AgentEvent {
	return f.events
}

func (f *fakeAgentSession) EndSession() error {
	f.mu.Lock()
	f.endCalls++
	block := f.endBlock
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	f.finish()
	return f.endErr
}

func (f *fakeAgentSession) WaitForSessionEnd() (string, error) {
	<-f.done
	return "conv_test", f.waitErr
}

func (f *fakeAgentSession) Close() error {
	f.mu.Lock()
	f.closeCalls++
	f.mu.Unlock()
	f.finish()
	return nil
}

func (f *fakeAgentSession) finish() {
	f.once.Do(func() {
		close(f.events)
		close(f.done)
	})
}

type fakeTranscriptSink struct {
	mu         sync.Mutex
	turns      []string
	id         string
	flushCalls int
	flushErr   error
	path       string
	onFlush    func()
}

func (f *fakeTranscriptSink) Append(speaker domain.Speaker, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, string(speaker)+": "+text)
}

func (f *fakeTranscriptSink) SetConversationID(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.id == "" {
		f.id = id
	}
}

func (f *fakeTranscriptSink) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.turns)
}

func (f *fakeTranscriptSink) Flush() (string, error) {
	f.mu.Lock()
	f.flushCalls++
	onFlush := f.onFlush
	f.mu.Unlock()
	if onFlush != nil {
		onFlush()
	}
	return f.path, f.flushErr
}

func (f *fakeTranscriptSink) flushed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushCalls
}

type eventRecorder struct {
	mu             sync.Mutex
	sessionStates  []domain.SessionState
	sessionReasons []domain.SessionReason
	gateStates     []domain.GateState
	errorCodes     []domain.ErrorCode
	agentTexts     []string
	userTexts      []string
	closingPhrases []string
}

func (r *eventRecorder) GateStateChanged(state domain.GateState, _ domain.GateReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateStates = append(r.gateStates, state)
}

func (r *eventRecorder) SessionStateChanged(state domain.SessionState, reason domain.SessionReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionStates = append(r.sessionStates, state)
	r.sessionReasons = append(r.sessionReasons, reason)
}

func (r *eventRecorder) AgentUtterance(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agentTexts = append(r.agentTexts, text)
}

func (r *eventRecorder) UserUtterance(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userTexts = append(r.userTexts, text)
}

func (r *eventRecorder) ClosingPhrase(phrase string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closingPhrases = append(r.closingPhrases, phrase)
}

func (r *eventRecorder) SessionError(code domain.ErrorCode, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errorCodes = append(r.errorCodes, code)
}

func (r *eventRecorder) lastSessionReason() domain.SessionReason {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessionReasons) == 0 {
		return ""
	}
	return r.sessionReasons[len(r.sessionReasons)-1]
}

func (r *eventRecorder) countSessionState(state domain.SessionState) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sessionStates {
		if s == state {
			n++
		}
	}
	return n
}

func (r *eventRecorder) hasErrorCode(code domain.ErrorCode) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.errorCodes {
		if c == code {
			return true
		}
	}
	return false
}
