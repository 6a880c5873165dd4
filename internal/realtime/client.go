package realtime

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Client 기본값
const (
	DefaultPollInterval         = 10 * time.Second
	DefaultHeartbeatInterval    = 25 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultBackoffBase          = 500 * time.Millisecond
	DefaultBackoffMax           = 8 * time.Second
)

// ErrServerClosed relay 가 close 프레임을 보냈을 때 Conn.ReadMessage 가 반환
var ErrServerClosed = errors.New("closed by server")

// Conn relay 소켓
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Handler 클라이언트 콜백. Run 고루틴에서 하나씩 호출된다
type Handler interface {
	HandleEvent(ev Event)
	// poll 주기마다, 그리고 재연결 직후 한 번
	Refetch()
	StateChanged(from, to State)
}

type Options struct {
	URL                  string
	Dialer               Dialer
	Clock                clock.Clock
	PollInterval         time.Duration
	HeartbeatInterval    time.Duration
	MaxReconnectAttempts int
	Backoff              Backoff
}

func (o *Options) setDefaults() {
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if o.MaxReconnectAttempts <= 0 {
		o.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if o.Backoff.Base <= 0 {
		o.Backoff.Base = DefaultBackoffBase
	}
	if o.Backoff.Max <= 0 {
		o.Backoff.Max = DefaultBackoffMax
	}
}

// Client 데스크톱 채널 소켓 유지. 안 되면 polling 으로 대체
type Client struct {
	opts    Options
	handler Handler

	mu      sync.Mutex
	machine *machine
	conn    Conn

	writeMu sync.Mutex
}

// NewClient 생성자. Run 전에는 아무것도 하지 않는다
func NewClient(opts Options, h Handler) *Client {
	opts.setDefaults()
	return &Client{
		opts:    opts,
		handler: h,
		machine: newMachine(opts.MaxReconnectAttempts),
	}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.state
}

// Send 이벤트 전송 (fire-and-forget). 소켓이 없으면 버리고,
// 쓰기 오류는 읽기 루프가 처리한다
func (c *Client) Send(t EventType, payload any) {
	c.mu.Lock()
	conn := c.conn
	live := c.machine.state.Live()
	c.mu.Unlock()
	if conn == nil || !live {
		return
	}

	data, err := Encode(t, payload)
	if err != nil {
		log.Printf("[Realtime] encode %s: %v", t, err)
		return
	}
	_ = c.write(conn, data)
}

// Run ctx 가 취소될 때까지 연결 유지. 항상 ctx.Err() 반환
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, err := c.opts.Dialer.Dial(ctx, c.opts.URL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t := c.apply((*machine).openFailed)
			log.Printf("[Realtime] open failed (%s): %v", t.To, err)
			if err := c.wait(ctx); err != nil {
				return err
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		opened, err := c.serve(ctx, conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		switch {
		case !opened:
			// 첫 프레임 전에 끊기면 열기 실패로 본다
			t := c.apply((*machine).openFailed)
			log.Printf("[Realtime] closed before first frame (%s): %v", t.To, err)
		case errors.Is(err, ErrServerClosed):
			log.Printf("[Realtime] relay closed the channel: %v", err)
			c.apply((*machine).serverClosed)
		default:
			log.Printf("[Realtime] connection lost: %v", err)
			c.apply((*machine).dropped)
		}
		if err := c.wait(ctx); err != nil {
			return err
		}
	}
}

func (c *Client) apply(step func(*machine) transition) transition {
	c.mu.Lock()
	t := step(c.machine)
	c.mu.Unlock()

	if t.changed() {
		log.Printf("[Realtime] %s -> %s", t.From, t.To)
		c.handler.StateChanged(t.From, t.To)
	}
	if t.Refetch {
		c.handler.Refetch()
	}
	return t
}

// wait 다음 연결 시도까지 대기. polling 이면 poll 간격 후 refetch, 아니면 backoff
func (c *Client) wait(ctx context.Context) error {
	c.mu.Lock()
	state := c.machine.state
	attempt := c.machine.attempt()
	c.mu.Unlock()

	d := c.opts.Backoff.Delay(attempt)
	if state == StatePolling {
		d = c.opts.PollInterval
	}

	timer := c.opts.Clock.Timer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	if state == StatePolling {
		c.handler.Refetch()
	}
	return nil
}

// serve 소켓이 실패할 때까지 읽기. 첫 프레임(join 시 relay 가 보내는
// presence_sync)을 받아야 connected 로 전환되며, opened 가 그 여부를 알려준다.
// 디코딩 실패는 버리고 계속 읽는다
func (c *Client) serve(ctx context.Context, conn Conn) (opened bool, err error) {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	go c.heartbeat(conn, done)

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			return opened, err
		}
		if !opened {
			opened = true
			c.apply((*machine).opened)
		}

		ev, err := Decode(data)
		if err != nil {
			continue
		}
		if ev.Type == EventPing || ev.Type == EventPong {
			continue
		}
		if !c.State().Live() {
			continue
		}
		c.handler.HandleEvent(ev)
	}
}

func (c *Client) heartbeat(conn Conn, done <-chan struct{}) {
	ticker := c.opts.Clock.Ticker(c.opts.HeartbeatInterval)
	defer ticker.Stop()

	ping, _ := Encode(EventPing, nil)
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.write(conn, ping); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(conn Conn, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(data)
}
