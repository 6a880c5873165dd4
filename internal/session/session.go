package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"desktop-realtime/internal/realtime"
)

// State 릴레이 세션 상태
type State int

const (
	StateJoining State = iota // 로스터 등록 전
	StateActive               // 메시지 릴레이 중
	StateClosed               // 연결 종료
)

// String 상태를 문자열로 반환
func (s State) String() string {
	switch s {
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn 세션이 쓰는 WebSocket 연결 (contrib/websocket.Conn 호환)
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// textMessage websocket.TextMessage
const textMessage = 1

// MaxIDLength 클라이언트가 제안할 수 있는 세션 ID 최대 길이
const MaxIDLength = 64

// Session 데스크톱 채널의 접속 하나 (Thread-Safe)
type Session struct {
	ID          string
	DesktopID   int64
	Sender      realtime.Sender
	CanEdit     bool
	ConnectedAt time.Time

	// 동시성 제어
	mu      sync.RWMutex
	state   State
	dropped uint64

	conn   Conn
	outbox chan []byte
	ctx    context.Context
	cancel context.CancelFunc
}

// NormalizeID 클라이언트가 준 세션 ID 검증. 비어있거나 너무 길면 새로 발급
func NormalizeID(proposed string) string {
	if proposed == "" || len(proposed) > MaxIDLength {
		return uuid.NewString()
	}
	return proposed
}

// New 새 세션 생성
func New(desktopID int64, sender realtime.Sender, canEdit bool, conn Conn, bufferSize int) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	if sender.SessionID == "" {
		sender.SessionID = uuid.NewString()
	}

	return &Session{
		ID:          sender.SessionID,
		DesktopID:   desktopID,
		Sender:      sender,
		CanEdit:     canEdit,
		ConnectedAt: time.Now(),
		state:       StateJoining,
		conn:        conn,
		outbox:      make(chan []byte, bufferSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Rename 같은 데스크톱에 같은 ID가 있을 때 새 ID로 교체 (Join 전에만 호출)
func (s *Session) Rename(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ID = id
	s.Sender.SessionID = id
}

// Context 세션 컨텍스트 반환
func (s *Session) Context() context.Context {
	return s.ctx
}

// Activate 로스터 등록 완료
func (s *Session) Activate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateJoining {
		s.state = StateActive
	}
}

// GetState 현재 상태 조회
func (s *Session) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// Send 송신 큐에 넣기. 큐가 가득 차면 버린다 (전달 보장 없음)
func (s *Session) Send(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return false
	}
	select {
	case s.outbox <- data:
		return true
	default:
		s.dropped++
		return false
	}
}

// Dropped 큐 포화로 버린 메시지 수
func (s *Session) Dropped() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.dropped
}

// WritePump 송신 큐를 연결에 쓴다. 쓰기 실패나 Close 시 종료
func (s *Session) WritePump(writeTimeout time.Duration) error {
	for {
		select {
		case <-s.ctx.Done():
			return nil
		case data := <-s.outbox:
			if writeTimeout > 0 {
				s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			}
			if err := s.conn.WriteMessage(textMessage, data); err != nil {
				s.cancel()
				return err
			}
		}
	}
}

// Duration 연결 유지 시간
func (s *Session) Duration() time.Duration {
	return time.Since(s.ConnectedAt)
}

// Close 세션 정리
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return
	}

	s.state = StateClosed
	s.cancel()
}

// IsClosed 세션 종료 여부 확인
func (s *Session) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state == StateClosed
}
