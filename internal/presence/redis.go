package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"desktop-realtime/internal/realtime"
)

// DefaultRosterTTL 하트비트가 끊긴 세션이 로스터에서 사라지는 시간
const DefaultRosterTTL = 60 * time.Second

// RosterEntry Redis에 저장될 세션 데이터
type RosterEntry struct {
	Session       realtime.Sender `json:"session"`
	LastHeartbeat int64           `json:"last_heartbeat"`
	ServerID      string          `json:"server_id"` // 멀티 서버 확장 대비
}

// RelayMessage 다른 서버 노드로 전달되는 릴레이 메시지
type RelayMessage struct {
	ServerID      string          `json:"server_id"`
	DesktopID     int64           `json:"desktop_id"`
	ExceptSession string          `json:"except_session,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// Roster 데스크톱별 접속 세션 관리자
// desktop:{id}:presence 해시에 세션별 엔트리를 두고 TTL 하트비트로 유지
type Roster struct {
	client   *redis.Client
	ttl      time.Duration
	serverID string
	now      func() time.Time
}

// NewRoster 생성자
func NewRoster(client *redis.Client, ttl time.Duration, serverID string) *Roster {
	if ttl <= 0 {
		ttl = DefaultRosterTTL
	}
	return &Roster{
		client:   client,
		ttl:      ttl,
		serverID: serverID,
		now:      time.Now,
	}
}

// ServerID 이 노드의 ID
func (r *Roster) ServerID() string {
	return r.serverID
}

// Key 생성 유틸
func rosterKey(desktopID int64) string {
	return fmt.Sprintf("desktop:%d:presence", desktopID)
}

func eventsChannel(desktopID int64) string {
	return fmt.Sprintf("desktop:%d:events", desktopID)
}

const eventsPattern = "desktop:*:events"

// Join 세션 등록 (Connect)
func (r *Roster) Join(ctx context.Context, desktopID int64, s realtime.Sender) error {
	data, err := json.Marshal(RosterEntry{
		Session:       s,
		LastHeartbeat: r.now().Unix(),
		ServerID:      r.serverID,
	})
	if err != nil {
		return err
	}

	key := rosterKey(desktopID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, s.SessionID, data)
	pipe.Expire(ctx, key, r.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Heartbeat 생존 신고 (엔트리 시각 갱신 + TTL 연장)
func (r *Roster) Heartbeat(ctx context.Context, desktopID int64, s realtime.Sender) error {
	return r.Join(ctx, desktopID, s)
}

// Leave 세션 삭제 (Disconnect)
func (r *Roster) Leave(ctx context.Context, desktopID int64, sessionID string) error {
	return r.client.HDel(ctx, rosterKey(desktopID), sessionID).Err()
}

// List 데스크톱의 살아있는 세션 목록
// 하트비트가 TTL 보다 오래된 엔트리는 죽은 노드의 잔여물이므로 정리
func (r *Roster) List(ctx context.Context, desktopID int64) ([]realtime.Sender, error) {
	key := rosterKey(desktopID)
	vals, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	live, stale := r.filter(vals)
	if len(stale) > 0 {
		if err := r.client.HDel(ctx, key, stale...).Err(); err != nil {
			return nil, err
		}
	}
	return live, nil
}

func (r *Roster) filter(vals map[string]string) (live []realtime.Sender, stale []string) {
	cutoff := r.now().Add(-r.ttl).Unix()
	for field, raw := range vals {
		var entry RosterEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.LastHeartbeat < cutoff {
			stale = append(stale, field)
			continue
		}
		live = append(live, entry.Session)
	}
	sort.Slice(live, func(i, j int) bool { return live[i].SessionID < live[j].SessionID })
	sort.Strings(stale)
	return live, stale
}

// Publish 릴레이 메시지를 다른 노드로 발행
func (r *Roster) Publish(ctx context.Context, desktopID int64, exceptSession string, data []byte) error {
	msg, err := json.Marshal(RelayMessage{
		ServerID:      r.serverID,
		DesktopID:     desktopID,
		ExceptSession: exceptSession,
		Data:          data,
	})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, eventsChannel(desktopID), msg).Err()
}

// Subscribe 모든 데스크톱 채널 구독. 자신이 발행한 메시지는 건너뛴다
func (r *Roster) Subscribe(ctx context.Context, deliver func(RelayMessage)) error {
	sub := r.client.PSubscribe(ctx, eventsPattern)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			msg, err := decodeRelayMessage(m.Channel, m.Payload)
			if err != nil || msg.ServerID == r.serverID {
				continue
			}
			deliver(msg)
		}
	}
}

func decodeRelayMessage(channel, payload string) (RelayMessage, error) {
	var msg RelayMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return RelayMessage{}, err
	}

	// 채널 이름이 진짜 출처
	id := strings.TrimSuffix(strings.TrimPrefix(channel, "desktop:"), ":events")
	desktopID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return RelayMessage{}, fmt.Errorf("bad channel %q: %w", channel, err)
	}
	msg.DesktopID = desktopID
	return msg, nil
}

// Ping 연결 확인 (health check)
func (r *Roster) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
