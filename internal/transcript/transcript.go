// Package transcript records conversation turns and persists them as a JSON
// artifact, one file per conversation.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"walkie/internal/domain"
)

// Turn is a single transcript entry.
type Turn struct {
	Role      domain.Speaker `json:"role"`
	Text      string         `json:"text"`
	Timestamp time.Time      `json:"timestamp"`
}

// Artifact is the persisted transcript document.
type Artifact struct {
	ConversationID string    `json:"conversation_id"`
	AgentID        string    `json:"agent_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Messages       []Turn    `json:"messages"`
	TotalMessages  int       `json:"total_messages"`
}

// FileSink buffers turns in memory and flushes them to <dir>/<id>.json.
// Appends arrive from the event loop while Flush runs on the shutdown path,
// so all state is mutex-guarded.
type FileSink struct {
	dir     string
	agentID string
	now     func() time.Time

	mu             sync.Mutex
	conversationID string
	turns          []Turn
}

// NewFileSink returns a sink writing under dir.
func NewFileSink(dir string, agentID string) *FileSink {
	if strings.TrimSpace(dir) == "" {
		dir = "transcripts"
	}
	return &FileSink{dir: dir, agentID: agentID, now: time.Now}
}

// Append records a turn. Empty text is dropped.
func (s *FileSink) Append(speaker domain.Speaker, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.mu.Lock()
	s.turns = append(s.turns, Turn{Role: speaker, Text: text, Timestamp: s.now()})
	s.mu.Unlock()
}

// SetConversationID records the id assigned by the remote service. The
// first non-empty id wins; the artifact filename derives from it.
func (s *FileSink) SetConversationID(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	s.mu.Lock()
	if s.conversationID == "" {
		s.conversationID = id
	}
	s.mu.Unlock()
}

// Len returns the number of recorded turns.
func (s *FileSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Flush writes the transcript artifact and returns its path. With no
// recorded turns it writes nothing and returns an empty path. Repeated
// flushes rewrite the same artifact, so calling it again after a late
// append is safe.
func (s *FileSink) Flush() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.turns) == 0 {
		return "", nil
	}

	if s.conversationID == "" {
		s.conversationID = "local_" + uuid.NewString()
	}

	artifact := Artifact{
		ConversationID: s.conversationID,
		AgentID:        s.agentID,
		Timestamp:      s.now(),
		Messages:       append([]Turn(nil), s.turns...),
		TotalMessages:  len(s.turns),
	}

	payload, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode transcript: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create transcript directory %q: %w", s.dir, err)
	}

	path := filepath.Join(s.dir, s.conversationID+".json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("failed to write transcript %q: %w", path, err)
	}

	return path, nil
}
