// Package elevenlabs implements the remote agent session over the
// ElevenLabs Conversational AI websocket protocol.
package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"walkie/internal/domain"
	"walkie/internal/ports"
)

// Config controls the ElevenLabs websocket settings.
type Config struct {
	APIKey     string
	AgentID    string
	APIBaseURL string
}

// Provider implements ports.AgentDialer for ElevenLabs conversational
// agents.
type Provider struct {
	cfg Config
}

func NewProvider(cfg Config) *Provider {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.elevenlabs.io"
	}
	return &Provider{cfg: cfg}
}

func (p *Provider) StartSession(ctx context.Context, cfg ports.SessionConfig) (ports.AgentSession, error) {
	agentID := strings.TrimSpace(cfg.AgentID)
	if agentID == "" {
		agentID = strings.TrimSpace(p.cfg.AgentID)
	}
	if agentID == "" {
		return nil, errors.New("ELEVENLABS_AGENT_ID is not configured")
	}

	wsURL, err := buildConversationURL(p.cfg, agentID)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	if key := strings.TrimSpace(p.cfg.APIKey); key != "" {
		headers.Set("xi-api-key", key)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ElevenLabs websocket: %w", err)
	}

	session := &agentSession{
		conn:       conn,
		events:     make(chan domain.AgentEvent, 64),
		outbound:   make(chan []byte, 32),
		sendClosed: make(chan struct{}),
		done:       make(chan struct{}),
	}

	session.wg.Add(2)
	go session.readLoop()
	go session.writeLoop()
	go func() {
		session.wg.Wait()
		close(session.events)
		close(session.done)
		_ = conn.Close()
	}()

	go func() {
		<-ctx.Done()
		_ = session.Close()
	}()

	if err := session.enqueue([]byte(`{"type":"conversation_initiation_client_data"}`)); err != nil {
		_ = session.Close()
		return nil, err
	}

	return session, nil
}

type agentSession struct {
	conn *websocket.Conn

	events chan domain.AgentEvent

	// outbound is never closed: senders can be blocked on it from the mic
	// pump while shutdown begins, so the send path is retired by closing
	// sendClosed instead.
	outbound   chan []byte
	sendClosed chan struct{}
	done       chan struct{}
	wg         sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeSendOnce sync.Once
	closeOnce     sync.Once

	idMu           sync.Mutex
	conversationID string
}

func (s *agentSession) SendUserAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"user_audio_chunk": base64.StdEncoding.EncodeToString(chunk),
	})
	if err != nil {
		return fmt.Errorf("failed to encode audio chunk: %w", err)
	}
	return s.enqueue(payload)
}

func (s *agentSession) enqueue(payload []byte) error {
	select {
	case <-s.sendClosed:
		return ports.ErrSessionClosed
	default:
	}

	select {
	case s.outbound <- payload:
		return nil
	case <-s.sendClosed:
		return ports.ErrSessionClosed
	case <-s.done:
		if err := s.waitErr(); err != nil {
			return err
		}
		return ports.ErrSessionClosed
	}
}

func (s *agentSession) Events() <-chan domain.AgentEvent {
	return s.events
}

// EndSession requests a clean close and waits for the remote to finish.
// It can block indefinitely; bounded termination is the caller's job.
func (s *agentSession) EndSession() error {
	s.closeSend()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(5*time.Second))
	<-s.done
	return s.waitErr()
}

func (s *agentSession) WaitForSessionEnd() (string, error) {
	<-s.done
	return s.ConversationID(), s.waitErr()
}

func (s *agentSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeSend()
		_ = s.conn.Close()
	})
	<-s.done
	return s.waitErr()
}

// ConversationID returns the id assigned by the remote service, empty until
// the initiation metadata arrives.
func (s *agentSession) ConversationID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return s.conversationID
}

func (s *agentSession) closeSend() {
	s.closeSendOnce.Do(func() {
		close(s.sendClosed)
	})
}

func (s *agentSession) waitErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *agentSession) setErr(err error) {
	if err == nil {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *agentSession) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case payload := <-s.outbound:
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.setErr(fmt.Errorf("failed to send session message: %w", err))
				return
			}
		case <-s.sendClosed:
			return
		}
	}
}

func (s *agentSession) readLoop() {
	defer s.wg.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(fmt.Errorf("failed to read session event: %w", err))
			return
		}

		var message serverMessage
		if err := json.Unmarshal(payload, &message); err != nil {
			continue
		}

		switch strings.ToLower(message.Type) {
		case "conversation_initiation_metadata":
			id := strings.TrimSpace(message.InitiationMetadata.ConversationID)
			if id == "" {
				continue
			}
			s.idMu.Lock()
			s.conversationID = id
			s.idMu.Unlock()
			s.emit(domain.AgentEvent{Kind: domain.AgentEventConversationStarted, Text: id})
		case "audio":
			pcm, err := base64.StdEncoding.DecodeString(message.AudioEvent.AudioBase64)
			if err != nil || len(pcm) == 0 {
				continue
			}
			s.emit(domain.AgentEvent{Kind: domain.AgentEventAudio, Audio: pcm})
		case "agent_response":
			text := strings.TrimSpace(message.AgentResponseEvent.AgentResponse)
			if text == "" {
				continue
			}
			s.emit(domain.AgentEvent{Kind: domain.AgentEventAgentUtterance, Text: text})
		case "user_transcript":
			text := strings.TrimSpace(message.UserTranscriptionEvent.UserTranscript)
			if text == "" {
				continue
			}
			s.emit(domain.AgentEvent{Kind: domain.AgentEventUserTranscript, Text: text})
		case "ping":
			pong, err := json.Marshal(map[string]any{"type": "pong", "event_id": message.PingEvent.EventID})
			if err == nil {
				// Best effort: a dropped pong only risks a remote
				// keepalive retry.
				_ = s.enqueue(pong)
			}
		case "error":
			detail := strings.TrimSpace(message.Message)
			if detail == "" {
				detail = "elevenlabs returned an unknown error"
			}
			s.setErr(errors.New(detail))
			return
		}
	}
}

// emit delivers an inbound event. Audio chunks are dropped when the
// consumer lags, since stale frames are worse than missing ones for live
// playback. Text events and the conversation id are low-rate and must not
// be lost, so they block; the event loop drains the channel for the whole
// session lifetime.
func (s *agentSession) emit(event domain.AgentEvent) {
	if event.Kind == domain.AgentEventAudio {
		select {
		case s.events <- event:
		default:
		}
		return
	}
	s.events <- event
}

type serverMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`

	InitiationMetadata struct {
		ConversationID   string `json:"conversation_id"`
		AgentAudioFormat string `json:"agent_output_audio_format"`
	} `json:"conversation_initiation_metadata_event"`

	AudioEvent struct {
		AudioBase64 string `json:"audio_base_64"`
		EventID     int    `json:"event_id"`
	} `json:"audio_event"`

	AgentResponseEvent struct {
		AgentResponse string `json:"agent_response"`
	} `json:"agent_response_event"`

	UserTranscriptionEvent struct {
		UserTranscript string `json:"user_transcript"`
	} `json:"user_transcription_event"`

	PingEvent struct {
		EventID int `json:"event_id"`
	} `json:"ping_event"`
}

func buildConversationURL(cfg Config, agentID string) (string, error) {
	base := strings.TrimSpace(cfg.APIBaseURL)
	if base == "" {
		base = "https://api.elevenlabs.io"
	}

	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	conversationURL, err := url.Parse(base + "/v1/convai/conversation")
	if err != nil {
		return "", fmt.Errorf("invalid ElevenLabs API base URL: %w", err)
	}

	query := conversationURL.Query()
	query.Set("agent_id", agentID)
	conversationURL.RawQuery = query.Encode()
	return conversationURL.String(), nil
}
