package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KakuleMalambo/voice-assistant/internal/metrics"
	"github.com/KakuleMalambo/voice-assistant/pkg/conversation"
	"github.com/KakuleMalambo/voice-assistant/pkg/house"
	"github.com/KakuleMalambo/voice-assistant/pkg/hub"
	"github.com/KakuleMalambo/voice-assistant/pkg/protocol"
	"github.com/KakuleMalambo/voice-assistant/pkg/tools"
)

type fixture struct {
	store  *house.JSONStore
	hub    *hub.Hub
	server *Server
	mocks  chan *conversation.Mock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := house.NewJSONStore(filepath.Join(t.TempDir(), "rooms.json"))
	require.NoError(t, err)
	require.NoError(t, store.Seed(house.Document{House: house.House{Rooms: []house.Room{
		{Name: "Kitchen", Temperature: 21},
		{Name: "Bedroom", Temperature: 18},
	}}}))

	h := hub.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = h.Run(ctx) }()
	t.Cleanup(cancel)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	registry, err := tools.NewRegistry(tools.Builtin(tools.BuiltinConfig{Store: store})...)
	require.NoError(t, err)
	disp := tools.NewDispatcher(registry,
		tools.WithMetrics(m),
		tools.WithObserver(ToolObserver(h, store, nil)))

	f := &fixture{store: store, hub: h, mocks: make(chan *conversation.Mock, 1)}
	f.server = NewServer(Config{
		Store:      store,
		Dispatcher: disp,
		Hub:        h,
		NewProvider: func() (conversation.Provider, error) {
			mock := conversation.NewMock()
			f.mocks <- mock
			return mock, nil
		},
		Metrics:  m,
		Gatherer: reg,
	})
	return f
}

func decode(t *testing.T, body io.Reader, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(body).Decode(v))
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	resp, err := f.server.App().Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]any
	decode(t, resp.Body, &body)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 0, body["sessions"])
}

func TestListTools(t *testing.T) {
	f := newFixture(t)

	resp, err := f.server.App().Test(httptest.NewRequest("GET", "/api/tools", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var list []ToolInfo
	decode(t, resp.Body, &list)
	names := make([]string, 0, len(list))
	for _, ti := range list {
		names = append(names, ti.Name)
		assert.Equal(t, "object", ti.Parameters["type"], ti.Name)
	}
	assert.ElementsMatch(t, []string{
		tools.NameWeather, tools.NameSearchWeb, tools.NameGetRoomTemperatures, tools.NameSetRoomTemperature,
	}, names)
}

func TestInvokeTool(t *testing.T) {
	tests := []struct {
		name       string
		tool       string
		body       string
		wantStatus int
		wantFailed bool
		wantText   string
	}{
		{
			name:       "set temperature",
			tool:       tools.NameSetRoomTemperature,
			body:       `{"args":{"roomName":"Kitchen","temperature":23}}`,
			wantStatus: 200,
			wantText:   "The temperature in Kitchen has been set from 21 to 23 degrees.",
		},
		{
			name:       "read temperatures without body",
			tool:       tools.NameGetRoomTemperatures,
			wantStatus: 200,
			wantText:   "Kitchen: 21 degrees",
		},
		{
			name:       "invalid arguments",
			tool:       tools.NameSetRoomTemperature,
			body:       `{"args":{"roomName":"Kitchen","temperature":"warm"}}`,
			wantStatus: 200,
			wantFailed: true,
			wantText:   "Invalid arguments",
		},
		{
			name:       "unknown tool",
			tool:       "launchRocket",
			body:       `{"args":{}}`,
			wantStatus: 404,
		},
		{
			name:       "malformed body",
			tool:       tools.NameWeather,
			body:       `{"args":`,
			wantStatus: 400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			req := httptest.NewRequest("POST", "/api/tools/"+tt.tool, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := f.server.App().Test(req)
			require.NoError(t, err)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus != 200 {
				return
			}

			var out InvokeResponse
			decode(t, resp.Body, &out)
			assert.Equal(t, tt.tool, out.Tool)
			assert.Equal(t, tt.wantFailed, out.Failed)
			assert.Contains(t, out.Result, tt.wantText)
		})
	}
}

func TestListRooms(t *testing.T) {
	f := newFixture(t)

	resp, err := f.server.App().Test(httptest.NewRequest("GET", "/api/rooms", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var rooms []house.Room
	decode(t, resp.Body, &rooms)
	assert.Equal(t, []house.Room{{Name: "Kitchen", Temperature: 21}, {Name: "Bedroom", Temperature: 18}}, rooms)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest("POST", "/api/tools/"+tools.NameGetRoomTemperatures, nil)
	_, err := f.server.App().Test(req)
	require.NoError(t, err)

	resp, err := f.server.App().Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "assistant_tool_invocations_total")
}

func TestSessionRequiresUpgrade(t *testing.T) {
	f := newFixture(t)

	resp, err := f.server.App().Test(httptest.NewRequest("GET", "/ws/session", nil))
	require.NoError(t, err)
	assert.Equal(t, 426, resp.StatusCode)
}

// serve starts the server on a loopback port and returns its address.
func serve(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(15 * time.Second):
			t.Error("server did not shut down")
		}
	})
	return ln.Addr().String()
}

func writeFrame(t *testing.T, conn *websocket.Conn, msg *protocol.Message, err error) {
	t.Helper()
	require.NoError(t, err)
	data, err := msg.Bytes()
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

// readUntilState reads frames until a state frame with the wanted state.
func readUntilState(t *testing.T, conn *websocket.Conn, want string) *protocol.StateData {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for state %q", want)
		msg, err := protocol.ParseMessage(data)
		require.NoError(t, err)
		if msg.Type != protocol.TypeState {
			continue
		}
		st, err := msg.GetStateData()
		require.NoError(t, err)
		if st.State == want {
			return st
		}
	}
}

// readUntilType reads frames until one of type want arrives.
func readUntilType(t *testing.T, conn *websocket.Conn, want protocol.MessageType) *protocol.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %q frame", want)
		msg, err := protocol.ParseMessage(data)
		require.NoError(t, err)
		if msg.Type == want {
			return msg
		}
	}
}

func TestParticipantSession(t *testing.T) {
	f := newFixture(t)
	addr := serve(t, f.server)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/session", nil)
	require.NoError(t, err)
	defer conn.Close()

	var mock *conversation.Mock
	select {
	case mock = <-f.mocks:
	case <-time.After(5 * time.Second):
		t.Fatal("no provider created")
	}

	readUntilState(t, conn, "awaiting_participant")
	msg, err := protocol.NewJoinMessage("alice")
	writeFrame(t, conn, msg, err)
	active := readUntilState(t, conn, "active")
	assert.NotEmpty(t, active.SessionID)
	assert.Equal(t, 1, f.server.SessionCount())

	require.NotNil(t, mock.SessionOptions())
	assert.Len(t, mock.SessionOptions().Tools, 4)

	mock.SimulateToolCall("call-1", tools.NameSetRoomTemperature, map[string]any{
		"roomName":    "Bedroom",
		"temperature": 20,
	})
	require.Eventually(t, func() bool {
		_, ok := mock.ToolResults()["call-1"]
		return ok
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "The temperature in Bedroom has been set from 18 to 20 degrees.", mock.ToolResults()["call-1"])

	room, err := f.store.FindByName(context.Background(), "Bedroom")
	require.NoError(t, err)
	assert.Equal(t, 20.0, room.Temperature)

	mock.SimulateAudioDone()
	readUntilType(t, conn, protocol.TypeAudioDone)
	mock.SimulateInterruption()
	readUntilType(t, conn, protocol.TypeInterrupt)

	msg, err = protocol.NewLeaveMessage()
	writeFrame(t, conn, msg, err)
	readUntilState(t, conn, "terminated")

	require.Eventually(t, func() bool { return f.server.SessionCount() == 0 }, 5*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, mock.CloseCalls(), 1)
}

func TestParticipantOversizedFrameEndsSession(t *testing.T) {
	f := newFixture(t)
	addr := serve(t, f.server)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/session", nil)
	require.NoError(t, err)
	defer conn.Close()

	readUntilState(t, conn, "awaiting_participant")
	require.Equal(t, 1, f.server.SessionCount())

	huge := `{"type":"audio","data":{"data":"` + strings.Repeat("A", maxFrameSize) + `"}}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(huge)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			var netErr net.Error
			require.False(t, errors.As(err, &netErr) && netErr.Timeout(), "connection was not closed")
			break
		}
	}
	require.Eventually(t, func() bool { return f.server.SessionCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestParticipantProviderFailure(t *testing.T) {
	f := newFixture(t)
	f.server.cfg.NewProvider = func() (conversation.Provider, error) {
		return nil, errors.New("no API key")
	}
	addr := serve(t, f.server)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/session", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := protocol.ParseMessage(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeError, msg.Type)

	var ed protocol.ErrorData
	require.NoError(t, msg.ParseData(&ed))
	assert.Contains(t, ed.Message, "no API key")
}

func TestToolObserverPublishesRoomChanges(t *testing.T) {
	f := newFixture(t)
	addr := serve(t, f.server)

	dash, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/events", nil)
	require.NoError(t, err)
	defer dash.Close()
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	_, err = f.server.cfg.Dispatcher.Invoke(context.Background(), tools.NameSetRoomTemperature,
		map[string]any{"roomName": "Kitchen", "temperature": 19.5})
	require.NoError(t, err)

	var types []string
	require.NoError(t, dash.SetReadDeadline(time.Now().Add(5*time.Second)))
	for len(types) < 2 {
		_, data, err := dash.ReadMessage()
		require.NoError(t, err)
		var env struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(data, &env))
		types = append(types, env.Type)
	}
	assert.Equal(t, []string{hub.EventToolInvocation, hub.EventRoomsChanged}, types)
}
