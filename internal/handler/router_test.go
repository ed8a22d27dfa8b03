package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"lobbychat/internal/app/chat"
	"lobbychat/internal/app/db"
	"lobbychat/internal/app/user"
	"lobbychat/internal/configs"
	"lobbychat/internal/pkg/errs"
	"lobbychat/internal/pkg/resp"
)

type testServer struct {
	*httptest.Server
	manager *chat.Manager
}

func newTestServer(t *testing.T, environment string, allowedOrigins ...string) *testServer {
	t.Helper()

	conn, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "user_cred.db"))
	require.NoError(t, err)

	manager := chat.NewManager(chat.NewBus(64), user.NewStoreWithCost(conn, bcrypt.MinCost))
	srv := httptest.NewServer(Router(&AppDeps{
		Manager: manager,
		Config: &configs.AppConfig{
			Environment:    environment,
			AllowedOrigins: allowedOrigins,
			EventBuffer:    64,
		},
	}))

	// cleanups run last-in first-out
	t.Cleanup(func() { conn.Close() })
	t.Cleanup(srv.Close)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		manager.Shutdown(ctx)
	})

	return &testServer{Server: srv, manager: manager}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func writeFrame(t *testing.T, conn *websocket.Conn, frameType chat.FrameType, payload any) {
	t.Helper()

	data, err := chat.EncodeFrame(frameType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

// readUntil returns the first frame of the wanted type accepted by match, skipping the rest.
func readUntil(t *testing.T, conn *websocket.Conn, want chat.FrameType, match func(json.RawMessage) bool) chat.Frame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", want)

		var frame chat.Frame
		require.NoError(t, json.Unmarshal(data, &frame))
		if frame.Type == want && (match == nil || match(frame.Payload)) {
			return frame
		}
	}
}

func readError(t *testing.T, conn *websocket.Conn) chat.ErrorPayload {
	t.Helper()

	var p chat.ErrorPayload
	require.NoError(t, json.Unmarshal(readUntil(t, conn, chat.TypeError, nil).Payload, &p))
	return p
}

func readEvent(t *testing.T, conn *websocket.Conn, body string) chat.Event {
	t.Helper()

	var ev chat.Event
	frame := readUntil(t, conn, chat.TypeEvent, func(raw json.RawMessage) bool {
		var e chat.Event
		return json.Unmarshal(raw, &e) == nil && e.Body == body
	})
	require.NoError(t, json.Unmarshal(frame.Payload, &ev))
	return ev
}

func readJoined(t *testing.T, conn *websocket.Conn) chat.JoinedPayload {
	t.Helper()

	var p chat.JoinedPayload
	require.NoError(t, json.Unmarshal(readUntil(t, conn, chat.TypeJoined, nil).Payload, &p))
	return p
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, "development")
	ann := srv.dial(t)
	writeFrame(t, ann, chat.TypeJoinGuest, chat.JoinGuestPayload{Name: "Ann"})
	readJoined(t, ann)
	srv.dial(t)

	require.Eventually(t, func() bool { return srv.manager.Connections() == 2 }, time.Second, 10*time.Millisecond)

	res, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)

	var body struct {
		resp.JSONResponse
		Data struct {
			Status      string `json:"status"`
			Connections int    `json:"connections"`
			Online      int    `json:"online"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "ok", body.Data.Status)
	assert.Equal(t, 2, body.Data.Connections)
	assert.Equal(t, 1, body.Data.Online)
}

func TestServesChatPage(t *testing.T) {
	srv := newTestServer(t, "development")

	res, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	page, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>Lobby Chat</title>")
}

func TestChatBetweenGuestAndRegisteredUser(t *testing.T) {
	srv := newTestServer(t, "development")
	ann := srv.dial(t)
	bob := srv.dial(t)

	writeFrame(t, ann, chat.TypeJoinGuest, chat.JoinGuestPayload{Name: "Ann"})
	joined := readJoined(t, ann)
	assert.Equal(t, chat.JoinedPayload{DisplayName: "Ann", UserType: user.TypeGuest}, joined)

	writeFrame(t, bob, chat.TypeSignup, chat.SignupPayload{Username: "bob", Email: "bob@x.io", Password: "secret123"})
	joined = readJoined(t, bob)
	assert.Equal(t, user.TypeRegistered, joined.UserType)

	notice := readEvent(t, ann, "bob has joined the chat.")
	assert.Equal(t, chat.KindSystem, notice.Kind)

	writeFrame(t, ann, chat.TypeText, chat.TextPayload{Content: "hi"})
	for _, conn := range []*websocket.Conn{ann, bob} {
		ev := readEvent(t, conn, "hi")
		assert.Equal(t, "Ann", ev.Author)
		assert.Equal(t, chat.KindChat, ev.Kind)
	}

	writeFrame(t, bob, chat.TypeText, chat.TextPayload{Content: "bye"})
	assert.Equal(t, "bob", readEvent(t, ann, "bye").Author)

	require.NoError(t, bob.Close())
	readEvent(t, ann, "bob has left the chat.")
}

func TestLoginOverWebSocket(t *testing.T) {
	srv := newTestServer(t, "development")

	first := srv.dial(t)
	writeFrame(t, first, chat.TypeSignup, chat.SignupPayload{Username: "alice", Email: "a@x.io", Password: "secret123"})
	readJoined(t, first)

	second := srv.dial(t)
	writeFrame(t, second, chat.TypeJoinGuest, chat.JoinGuestPayload{Name: "alice"})
	e := readError(t, second)
	assert.Equal(t, errs.ErrNameTaken, e.Code)
	assert.Equal(t, []string{"name"}, e.Fields)

	writeFrame(t, second, chat.TypeLogin, chat.LoginPayload{Username: "alice", Password: "wrong"})
	e = readError(t, second)
	assert.Equal(t, errs.ErrInvalidCredentials, e.Code)
	assert.Equal(t, "Invalid credentials", e.Message)

	writeFrame(t, second, chat.TypeSignup, chat.SignupPayload{Username: "alice", Email: "other@x.io", Password: "secret123"})
	e = readError(t, second)
	assert.Equal(t, errs.ErrUserAlreadyExists, e.Code)
	assert.Equal(t, []string{"username"}, e.Fields)

	writeFrame(t, second, chat.TypeLogin, chat.LoginPayload{Username: "alice", Password: "secret123"})
	joined := readJoined(t, second)
	assert.Equal(t, "alice", joined.DisplayName)
}

func TestRejectsBadFrames(t *testing.T) {
	srv := newTestServer(t, "development")
	conn := srv.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, errs.ErrInvalidJSONFormat, readError(t, conn).Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"TEXT","payload":{"content":"x"}}}`)))
	assert.Equal(t, errs.ErrExtraContentInBody, readError(t, conn).Code)

	writeFrame(t, conn, chat.FrameType("PING"), struct{}{})
	e := readError(t, conn)
	assert.Equal(t, errs.ErrUnsupportedFrameType, e.Code)
	assert.Contains(t, e.Message, "PING")

	writeFrame(t, conn, chat.TypeText, chat.TextPayload{Content: "too early"})
	assert.Equal(t, errs.ErrNotJoined, readError(t, conn).Code)

	writeFrame(t, conn, chat.TypeJoinGuest, chat.JoinGuestPayload{Name: "   "})
	e = readError(t, conn)
	assert.Equal(t, errs.ErrNameRequired, e.Code)
	assert.Equal(t, []string{"name"}, e.Fields)

	// the connection survives every rejection
	writeFrame(t, conn, chat.TypeJoinGuest, chat.JoinGuestPayload{Name: "Ann"})
	readJoined(t, conn)
}

func TestOriginCheck(t *testing.T) {
	srv := newTestServer(t, "production", "https://chat.example")
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, res, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	var body resp.JSONResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	res.Body.Close()
	assert.Equal(t, errs.ErrOriginNotAllowed, body.Code)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://chat.example"}})
	require.NoError(t, err)
	conn.Close()
}

func TestShutdownClosesConnections(t *testing.T) {
	srv := newTestServer(t, "development")
	conn := srv.dial(t)
	writeFrame(t, conn, chat.TypeJoinGuest, chat.JoinGuestPayload{Name: "Ann"})
	readJoined(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.manager.Shutdown(ctx))
	assert.Zero(t, srv.manager.Connections())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNoStatusReceived), err.Error())
			return
		}
	}
}
