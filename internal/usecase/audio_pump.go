package usecase

import (
	"errors"
	"fmt"
	"io"

	"walkie/internal/audio"
	"walkie/internal/domain"
	"walkie/internal/ports"
)

// frameGate arbitrates whether captured microphone frames may reach the
// remote session. All methods are invoked from the pump goroutine only.
type frameGate interface {
	Admit(frame []int16) bool
	PlaybackStarted()
	PlaybackStopped()
}

// playbackMonitor reports whether queued speaker audio is still audible.
type playbackMonitor interface {
	Playing() bool
}

func pumpMicFrames(
	capture ports.CaptureSession,
	session ports.AgentSession,
	gate frameGate,
	playback playbackMonitor,
	frameSize int,
	events ports.EventSink,
	done chan struct{},
) {
	defer close(done)

	if frameSize < 256 {
		frameSize = 4096
	}

	buf := make([]byte, frameSize)
	for {
		n, err := io.ReadFull(capture, buf)
		if n > 0 {
			// The pump is the single writer of gate state; playback
			// transitions are polled here so the gate never needs its
			// own goroutine.
			if playback.Playing() {
				gate.PlaybackStarted()
			} else {
				gate.PlaybackStopped()
			}

			frame := audio.BytesToSamples(buf[:n])
			if gate.Admit(frame) {
				if sendErr := session.SendUserAudio(buf[:n]); sendErr != nil {
					if errors.Is(sendErr, ports.ErrSessionClosed) {
						return
					}
					events.SessionError(domain.ErrorCodeAudioStream, fmt.Sprintf("failed to stream microphone audio: %v", sendErr))
					return
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				events.SessionError(domain.ErrorCodeAudioStream, fmt.Sprintf("microphone capture error: %v", err))
			}
			return
		}
	}
}
