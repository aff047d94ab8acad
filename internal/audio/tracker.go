package audio

import (
	"sync"
	"time"
)

const pcmBytesPerSample = 2

// PlaybackTracker estimates when queued speaker audio stops being audible.
// The player consumes PCM at exactly the sample rate, so the playback
// horizon advances by the byte-duration of every queued chunk; the speaker
// is considered playing while the horizon lies in the future.
type PlaybackTracker struct {
	sampleRate int
	channels   int
	now        func() time.Time

	mu      sync.Mutex
	horizon time.Time
}

func NewPlaybackTracker(sampleRate int, channels int) *PlaybackTracker {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if channels <= 0 {
		channels = 1
	}
	return &PlaybackTracker{sampleRate: sampleRate, channels: channels, now: time.Now}
}

// Add extends the playback horizon by the audible duration of n PCM bytes.
func (t *PlaybackTracker) Add(n int) {
	if n <= 0 {
		return
	}
	d := t.bytesToDuration(n)

	t.mu.Lock()
	base := t.now()
	if t.horizon.After(base) {
		base = t.horizon
	}
	t.horizon = base.Add(d)
	t.mu.Unlock()
}

// Playing reports whether queued audio is still audible.
func (t *PlaybackTracker) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now().Before(t.horizon)
}

// Reset clears the horizon, e.g. after the playback queue is dropped.
func (t *PlaybackTracker) Reset() {
	t.mu.Lock()
	t.horizon = time.Time{}
	t.mu.Unlock()
}

func (t *PlaybackTracker) bytesToDuration(n int) time.Duration {
	samples := n / (pcmBytesPerSample * t.channels)
	return time.Duration(samples) * time.Second / time.Duration(t.sampleRate)
}
