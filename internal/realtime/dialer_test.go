package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// relayServer 모든 요청을 업그레이드해 serve 에 소켓을 넘긴다
func relayServer(t *testing.T, serve func(ws *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		serve(ws)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/desktops/1"
}

func dial(t *testing.T, url string) Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := NewWSDialer(time.Second).Dial(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWSConnCloseFrameIsServerClosed(t *testing.T) {
	url := relayServer(t, func(ws *websocket.Conn) {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "desktop deleted")
		ws.WriteMessage(websocket.CloseMessage, msg)
		// close 응답을 받을 때까지 대기
		ws.ReadMessage()
	})

	_, err := dial(t, url).ReadMessage()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServerClosed)
}

func TestWSConnAbruptDropIsNotServerClosed(t *testing.T) {
	url := relayServer(t, func(ws *websocket.Conn) {
		ws.UnderlyingConn().Close()
	})

	_, err := dial(t, url).ReadMessage()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrServerClosed)
}

func TestWSConnRoundTrip(t *testing.T) {
	url := relayServer(t, func(ws *websocket.Conn) {
		kind, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		ws.WriteMessage(kind, data)
		ws.ReadMessage()
	})

	conn := dial(t, url)
	frame, err := Encode(EventCursorMove, CursorPosition{X: 3, Y: 4})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(frame))

	got, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, string(frame), string(got))
}

func TestClientNetworkDropReconnectsOverWebsocket(t *testing.T) {
	url := relayServer(t, func(ws *websocket.Conn) {
		hello, _ := Encode(EventPresenceSync, PresenceSync{})
		ws.WriteMessage(websocket.TextMessage, hello)
		time.Sleep(20 * time.Millisecond)
		ws.UnderlyingConn().Close()
	})

	h := &recordingHandler{}
	c := NewClient(Options{
		URL:                  url,
		Dialer:               NewWSDialer(time.Second),
		PollInterval:         time.Hour,
		HeartbeatInterval:    time.Hour,
		MaxReconnectAttempts: 3,
		Backoff:              Backoff{Base: time.Millisecond, Max: 2 * time.Millisecond},
	}, h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool { return h.sawTransition(StateConnected, StateReconnecting) }, 5*time.Second, 5*time.Millisecond)
	assert.False(t, h.sawTransition(StateConnected, StatePolling))
}
