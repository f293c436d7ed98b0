package protocol

import (
	"encoding/base64"
	"time"
)

// AudioFormat and AudioSampleRate describe every audio frame on the wire.
const (
	AudioFormat     = "pcm16"
	AudioSampleRate = 24000
)

// NewJoinMessage creates a join message
func NewJoinMessage(identity string) (*Message, error) {
	return NewMessage(TypeJoin, JoinData{Identity: identity})
}

// NewAudioMessage creates an audio message from raw PCM16
func NewAudioMessage(pcm []byte) (*Message, error) {
	return NewMessage(TypeAudio, AudioData{
		Format:     AudioFormat,
		SampleRate: AudioSampleRate,
		Data:       base64.StdEncoding.EncodeToString(pcm),
	})
}

// NewLeaveMessage creates a leave message
func NewLeaveMessage() (*Message, error) {
	return NewMessage(TypeLeave, nil)
}

// NewStateMessage creates a session state message
func NewStateMessage(sessionID, state string) (*Message, error) {
	return NewMessage(TypeState, StateData{SessionID: sessionID, State: state})
}

// NewTranscriptMessage creates a transcript message
func NewTranscriptMessage(role, text string, final bool) (*Message, error) {
	return NewMessage(TypeTranscript, TranscriptData{Role: role, Text: text, Final: final})
}

// NewErrorMessage creates an error message
func NewErrorMessage(msg string) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Message: msg})
}

// NewInterruptMessage tells the participant the user barged in.
func NewInterruptMessage() (*Message, error) {
	return NewMessage(TypeInterrupt, nil)
}

// NewAudioDoneMessage marks the end of the assistant's spoken turn.
func NewAudioDoneMessage() (*Message, error) {
	return NewMessage(TypeAudioDone, nil)
}

// NewPongMessage answers a ping received at pingTS.
func NewPongMessage(id string, pingTS int64) (*Message, error) {
	pongTS := time.Now().UnixMilli()
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// GetJoinData extracts join data from a message
func (m *Message) GetJoinData() (*JoinData, error) {
	var data JoinData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetAudioData extracts audio data from a message
func (m *Message) GetAudioData() (*AudioData, error) {
	var data AudioData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Decode decodes the base64 audio data
func (a *AudioData) Decode() ([]byte, error) {
	return base64.StdEncoding.DecodeString(a.Data)
}

// GetTranscriptData extracts transcript data from a message
func (m *Message) GetTranscriptData() (*TranscriptData, error) {
	var data TranscriptData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStateData extracts state data from a message
func (m *Message) GetStateData() (*StateData, error) {
	var data StateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
