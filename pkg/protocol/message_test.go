package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    any
	}{
		{"join message", TypeJoin, JoinData{Identity: "alice"}},
		{"transcript message", TypeTranscript, TranscriptData{Role: "assistant", Text: "Hi", Final: true}},
		{"nil data", TypeLeave, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if err != nil {
				t.Fatalf("NewMessage() error = %v", err)
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
			if tt.data == nil && msg.Data != nil {
				t.Error("nil data should leave Data empty")
			}
		})
	}
}

func TestAudioMessage(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0xfe, 0xff}

	msg, err := NewAudioMessage(pcm)
	if err != nil {
		t.Fatalf("NewAudioMessage() error = %v", err)
	}
	raw, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	parsed, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	audio, err := parsed.GetAudioData()
	if err != nil {
		t.Fatalf("GetAudioData() error = %v", err)
	}
	if audio.Format != AudioFormat || audio.SampleRate != AudioSampleRate {
		t.Errorf("audio header = %s/%d", audio.Format, audio.SampleRate)
	}
	decoded, err := audio.Decode()
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if string(decoded) != string(pcm) {
		t.Errorf("decoded = %v, want %v", decoded, pcm)
	}
}

func TestJoinMessage(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"join","data":{"identity":"bob"}}`))
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	join, err := msg.GetJoinData()
	if err != nil {
		t.Fatalf("GetJoinData() error = %v", err)
	}
	if join.Identity != "bob" {
		t.Errorf("identity = %q", join.Identity)
	}
}

func TestParseInvalidMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		unknown bool
	}{
		{"empty", "", false},
		{"not json", "hello", false},
		{"unknown type", `{"type":"motor"}`, true},
		{"missing type", `{"data":{}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMessage([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrUnknownType); got != tt.unknown {
				t.Errorf("errors.Is(ErrUnknownType) = %v, want %v", got, tt.unknown)
			}
		})
	}
}

func TestMessageJSON(t *testing.T) {
	msg, err := NewTranscriptMessage("user", "what's the weather", false)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := msg.Bytes()

	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatal(err)
	}
	if generic["type"] != "transcript" {
		t.Errorf("type = %v", generic["type"])
	}
	if _, ok := generic["ts"]; !ok {
		t.Error("ts missing")
	}
	data := generic["data"].(map[string]any)
	if data["role"] != "user" || data["final"] != false {
		t.Errorf("data = %v", data)
	}
}

func TestPong(t *testing.T) {
	msg, err := NewPongMessage("p1", 1000)
	if err != nil {
		t.Fatal(err)
	}
	var pong PongData
	if err := msg.ParseData(&pong); err != nil {
		t.Fatal(err)
	}
	if pong.ID != "p1" || pong.PingTS != 1000 || pong.LatencyMs != pong.PongTS-1000 {
		t.Errorf("pong = %+v", pong)
	}
}

func BenchmarkParseMessage(b *testing.B) {
	msg, _ := NewAudioMessage(make([]byte, 4800))
	raw, _ := msg.Bytes()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ParseMessage(raw)
	}
}

func TestPlaybackControlMessages(t *testing.T) {
	tests := []struct {
		name string
		new  func() (*Message, error)
		want MessageType
	}{
		{"interrupt", NewInterruptMessage, TypeInterrupt},
		{"audio done", NewAudioDoneMessage, TypeAudioDone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := tt.new()
			if err != nil {
				t.Fatalf("constructor error = %v", err)
			}
			raw, err := msg.Bytes()
			if err != nil {
				t.Fatalf("Bytes() error = %v", err)
			}
			parsed, err := ParseMessage(raw)
			if err != nil {
				t.Fatalf("ParseMessage() error = %v", err)
			}
			if parsed.Type != tt.want {
				t.Errorf("type = %v, want %v", parsed.Type, tt.want)
			}
		})
	}
}
