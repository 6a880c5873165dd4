package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fasthttp/websocket"
)

// ChannelURL 데스크톱 채널 주소 생성. http(s) 는 ws(s) 로 바꾸고
// session 을 넘겨 relay 가 이 ID 로 메시지를 스탬프하게 한다
func ChannelURL(base string, desktopID int64, token, sessionID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse realtime url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported realtime url scheme %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/ws/desktops/" + strconv.FormatInt(desktopID, 10)
	q := u.Query()
	if token != "" {
		q.Set("token", token)
	}
	if sessionID != "" {
		q.Set("session", sessionID)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// WSDialer fasthttp/websocket 기반 Dialer
type WSDialer struct {
	Dialer       *websocket.Dialer
	Header       http.Header
	WriteTimeout time.Duration
}

// NewWSDialer 생성자
func NewWSDialer(writeTimeout time.Duration) *WSDialer {
	return &WSDialer{
		Dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		WriteTimeout: writeTimeout,
	}
}

func (d *WSDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	ws, resp, err := dialer.DialContext(ctx, rawURL, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return &wsConn{ws: ws, writeTimeout: d.WriteTimeout}, nil
}

type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		// 1006 은 close 프레임 없이 끊긴 경우(네트워크 단절)라 일반 drop 으로 둔다
		var ce *websocket.CloseError
		if errors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure {
			return nil, fmt.Errorf("%w: %d %s", ErrServerClosed, ce.Code, ce.Text)
		}
		return nil, err
	}
	return data, nil
}

func (c *wsConn) WriteMessage(data []byte) error {
	if c.writeTimeout > 0 {
		c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
