package session

import (
	"context"

	"github.com/KakuleMalambo/voice-assistant/pkg/conversation"
)

// State is a step in the session lifecycle. States only move forward.
type State int

const (
	StateConnecting State = iota
	StateAwaitingParticipant
	StateInitializing
	StateGreeting
	StateActive
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingParticipant:
		return "awaiting_participant"
	case StateInitializing:
		return "initializing"
	case StateGreeting:
		return "greeting"
	case StateActive:
		return "active"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Room is where a participant shows up. WaitForParticipant blocks until one
// joins or ctx is done; it imposes no timeout of its own.
type Room interface {
	WaitForParticipant(ctx context.Context) (Participant, error)
}

// Participant is the remote counterpart of a session.
type Participant interface {
	Identity() string

	// Audio delivers PCM16 frames from the participant. Closing it ends
	// the session.
	Audio() <-chan []byte

	// PlayAudio sends model audio to the participant.
	PlayAudio(audio []byte) error

	// SendTranscript relays a transcript fragment.
	SendTranscript(role conversation.Role, text string, final bool) error

	// Interrupt tells the participant to drop playback that is still
	// queued because the user started speaking.
	Interrupt() error

	// EndTurn marks the end of the assistant's audio for one response.
	EndTurn() error

	// Left is closed when the participant disconnects.
	Left() <-chan struct{}
}
