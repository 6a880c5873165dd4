package handler

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"desktop-realtime/internal/presence"
	"desktop-realtime/internal/realtime"
	"desktop-realtime/internal/session"
)

// =============================================================================
// Desktop Hub - 데스크톱 채널 단위 세션 관리 및 릴레이
// =============================================================================

// Roster 멀티 노드 로스터 + 팬아웃 (presence.Roster)
type Roster interface {
	ServerID() string
	Join(ctx context.Context, desktopID int64, s realtime.Sender) error
	Heartbeat(ctx context.Context, desktopID int64, s realtime.Sender) error
	Leave(ctx context.Context, desktopID int64, sessionID string) error
	List(ctx context.Context, desktopID int64) ([]realtime.Sender, error)
	Publish(ctx context.Context, desktopID int64, exceptSession string, data []byte) error
	Subscribe(ctx context.Context, deliver func(presence.RelayMessage)) error
}

const rosterTimeout = 3 * time.Second

// DesktopHub 모든 데스크톱 채널과 그 세션들
type DesktopHub struct {
	rooms  *xsync.MapOf[int64, *DesktopRoom]
	roster Roster // nil 이면 단일 노드
}

// DesktopRoom 한 데스크톱 채널
type DesktopRoom struct {
	ID       int64
	sessions *xsync.MapOf[string, *session.Session]
}

// NewDesktopHub DesktopHub 생성. roster 가 nil 이면 로컬 세션만 본다
func NewDesktopHub(roster Roster) *DesktopHub {
	return &DesktopHub{
		rooms:  xsync.NewMapOf[int64, *DesktopRoom](),
		roster: roster,
	}
}

// Join 세션 등록 후 presence_sync 브로드캐스트
// 같은 채널에 같은 세션 ID가 있으면 새 ID를 발급한다
func (h *DesktopHub) Join(s *session.Session) {
	h.rooms.Compute(s.DesktopID, func(room *DesktopRoom, loaded bool) (*DesktopRoom, bool) {
		if !loaded {
			room = &DesktopRoom{ID: s.DesktopID, sessions: xsync.NewMapOf[string, *session.Session]()}
			log.Printf("[DesktopHub] Created room: %d", s.DesktopID)
		}
		if _, taken := room.sessions.Load(s.ID); taken {
			s.Rename(session.NormalizeID(""))
		}
		room.sessions.Store(s.ID, s)
		return room, false
	})
	s.Activate()

	if h.roster != nil {
		ctx, cancel := context.WithTimeout(context.Background(), rosterTimeout)
		if err := h.roster.Join(ctx, s.DesktopID, s.Sender); err != nil {
			log.Printf("[DesktopHub] roster join failed (desktop %d): %v", s.DesktopID, err)
		}
		cancel()
	}

	log.Printf("[Relay %d] 🟢 joined: session=%s user=%d", s.DesktopID, s.ID, s.Sender.UserID)
	h.syncPresence(s.DesktopID)
}

// Leave 세션 제거 후 presence_sync 브로드캐스트. 빈 채널은 정리
func (h *DesktopHub) Leave(s *session.Session) {
	removed := false
	h.rooms.Compute(s.DesktopID, func(room *DesktopRoom, loaded bool) (*DesktopRoom, bool) {
		if !loaded {
			return room, true
		}
		if cur, ok := room.sessions.Load(s.ID); ok && cur == s {
			room.sessions.Delete(s.ID)
			removed = true
		}
		empty := room.sessions.Size() == 0
		if empty {
			log.Printf("[DesktopHub] Removed room: %d", s.DesktopID)
		}
		return room, empty
	})
	s.Close()
	if !removed {
		return
	}

	if h.roster != nil {
		ctx, cancel := context.WithTimeout(context.Background(), rosterTimeout)
		if err := h.roster.Leave(ctx, s.DesktopID, s.ID); err != nil {
			log.Printf("[DesktopHub] roster leave failed (desktop %d): %v", s.DesktopID, err)
		}
		cancel()
	}

	log.Printf("[Relay %d] 🔴 left: session=%s (%s)", s.DesktopID, s.ID, s.Duration().Round(time.Second))
	h.syncPresence(s.DesktopID)
}

// HandleMessage 클라이언트 메시지 하나 처리
// ping 은 pong 으로 응답, 릴레이 대상은 sender 를 찍어서 나머지 세션에 전달
// 알 수 없거나 깨진 메시지는 버린다
func (h *DesktopHub) HandleMessage(s *session.Session, data []byte) {
	env, err := realtime.ParseEnvelope(data)
	if err != nil {
		return
	}

	if env.Type == realtime.EventPing {
		if pong, err := realtime.Encode(realtime.EventPong, nil); err == nil {
			s.Send(pong)
		}
		if h.roster != nil {
			ctx, cancel := context.WithTimeout(context.Background(), rosterTimeout)
			if err := h.roster.Heartbeat(ctx, s.DesktopID, s.Sender); err != nil {
				log.Printf("[DesktopHub] heartbeat failed (desktop %d): %v", s.DesktopID, err)
			}
			cancel()
		}
		return
	}

	if !env.Type.Relayed() {
		return
	}
	if env.Type.Mutates() && !s.CanEdit {
		return
	}

	// 클라이언트가 넣은 sender 는 덮어쓴다
	sender := s.Sender
	env.Sender = &sender
	if _, err := realtime.DecodeEnvelope(env); err != nil {
		return
	}

	out, err := json.Marshal(env)
	if err != nil {
		return
	}
	h.Relay(s.DesktopID, s.ID, out)
}

// Relay 로컬 세션에 전달하고 다른 노드로 발행
func (h *DesktopHub) Relay(desktopID int64, exceptSession string, data []byte) {
	h.deliverLocal(desktopID, exceptSession, data)

	if h.roster != nil {
		ctx, cancel := context.WithTimeout(context.Background(), rosterTimeout)
		defer cancel()
		if err := h.roster.Publish(ctx, desktopID, exceptSession, data); err != nil {
			log.Printf("[DesktopHub] publish failed (desktop %d): %v", desktopID, err)
		}
	}
}

func (h *DesktopHub) deliverLocal(desktopID int64, exceptSession string, data []byte) {
	room, ok := h.rooms.Load(desktopID)
	if !ok {
		return
	}
	room.sessions.Range(func(id string, s *session.Session) bool {
		if id != exceptSession {
			s.Send(data)
		}
		return true
	})
}

// Run 다른 노드의 릴레이 메시지를 로컬 세션에 전달. ctx 취소까지 블록
func (h *DesktopHub) Run(ctx context.Context) error {
	if h.roster == nil {
		<-ctx.Done()
		return nil
	}
	log.Printf("[DesktopHub] 📡 relay fan-out started (server %s)", h.roster.ServerID())
	return h.roster.Subscribe(ctx, func(msg presence.RelayMessage) {
		h.deliverLocal(msg.DesktopID, msg.ExceptSession, msg.Data)
	})
}

// Sessions 데스크톱에 접속한 세션 목록
// 로스터가 있으면 모든 노드 기준, 실패하면 로컬 세션으로 대체
func (h *DesktopHub) Sessions(ctx context.Context, desktopID int64) []realtime.Sender {
	if h.roster != nil {
		list, err := h.roster.List(ctx, desktopID)
		if err == nil {
			return list
		}
		log.Printf("[DesktopHub] roster list failed (desktop %d): %v", desktopID, err)
	}
	return h.localSessions(desktopID)
}

func (h *DesktopHub) localSessions(desktopID int64) []realtime.Sender {
	room, ok := h.rooms.Load(desktopID)
	if !ok {
		return []realtime.Sender{}
	}
	list := make([]realtime.Sender, 0, room.sessions.Size())
	room.sessions.Range(func(_ string, s *session.Session) bool {
		list = append(list, s.Sender)
		return true
	})
	sort.Slice(list, func(i, j int) bool { return list[i].SessionID < list[j].SessionID })
	return list
}

// SessionCount 로컬 세션 수 (health/stats)
func (h *DesktopHub) SessionCount() (rooms, sessions int) {
	h.rooms.Range(func(_ int64, room *DesktopRoom) bool {
		rooms++
		sessions += room.sessions.Size()
		return true
	})
	return rooms, sessions
}

func (h *DesktopHub) syncPresence(desktopID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), rosterTimeout)
	defer cancel()

	data, err := realtime.Encode(realtime.EventPresenceSync, realtime.PresenceSync{Sessions: h.Sessions(ctx, desktopID)})
	if err != nil {
		log.Printf("[DesktopHub] presence_sync encode failed: %v", err)
		return
	}
	h.Relay(desktopID, "", data)
}
