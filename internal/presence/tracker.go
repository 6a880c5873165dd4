package presence

import (
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"desktop-realtime/internal/realtime"
)

// RemoteCursor 다른 세션 커서의 마지막 월드 좌표
type RemoteCursor struct {
	SessionID string
	UserID    int64
	FirstName string
	X, Y      float64
	Color     string
}

// RemoteSelector 에셋을 선택 중인 다른 세션
type RemoteSelector struct {
	SessionID string
	UserID    int64
	FirstName string
	Color     string
}

// ConnectedUser 아바타 목록 항목 (같은 사용자의 여러 탭은 하나로)
type ConnectedUser struct {
	UserID       int64
	Initial      string
	Email        string
	FirstName    string
	SessionCount int
	Color        string
}

// Tracker 원격 오버레이 (접속자, 커서, 선택). 자기 세션 이벤트는 무시
type Tracker struct {
	mu         sync.RWMutex
	self       string
	sessions   map[string]realtime.Sender
	cursors    map[string]RemoteCursor
	selections map[int64]map[string]RemoteSelector
}

// NewTracker 생성자
func NewTracker(selfID string) *Tracker {
	t := &Tracker{self: selfID}
	t.reset()
	return t
}

func (t *Tracker) Self() string {
	return t.self
}

// ApplySync relay 기준으로 접속자 교체. 목록에 없는 세션의 커서/선택은 제거
func (t *Tracker) ApplySync(sessions []realtime.Sender) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sessions = make(map[string]realtime.Sender, len(sessions))
	for _, s := range sessions {
		t.sessions[s.SessionID] = s
	}

	for id := range t.cursors {
		if _, ok := t.sessions[id]; !ok {
			delete(t.cursors, id)
		}
	}
	for assetID, holders := range t.selections {
		for id := range holders {
			if _, ok := t.sessions[id]; !ok {
				delete(holders, id)
			}
		}
		if len(holders) == 0 {
			delete(t.selections, assetID)
		}
	}
}

// MoveCursor cursor_move
func (t *Tracker) MoveCursor(from realtime.Sender, x, y float64) {
	if t.isSelf(from.SessionID) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.learn(from)
	t.cursors[from.SessionID] = RemoteCursor{
		SessionID: from.SessionID,
		UserID:    from.UserID,
		FirstName: from.FirstName,
		X:         x,
		Y:         y,
		Color:     UserColor(from.UserID),
	}
}

// LeaveCursor cursor_leave
func (t *Tracker) LeaveCursor(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.cursors, sessionID)
}

// Select asset_selected
func (t *Tracker) Select(from realtime.Sender, assetID int64) {
	if t.isSelf(from.SessionID) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.learn(from)
	holders, ok := t.selections[assetID]
	if !ok {
		holders = make(map[string]RemoteSelector)
		t.selections[assetID] = holders
	}
	holders[from.SessionID] = RemoteSelector{
		SessionID: from.SessionID,
		UserID:    from.UserID,
		FirstName: from.FirstName,
		Color:     UserColor(from.UserID),
	}
}

// Deselect asset_deselected
func (t *Tracker) Deselect(sessionID string, assetID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	holders, ok := t.selections[assetID]
	if !ok {
		return
	}
	delete(holders, sessionID)
	if len(holders) == 0 {
		delete(t.selections, assetID)
	}
}

// ForgetAsset 삭제된 에셋의 원격 선택 제거
func (t *Tracker) ForgetAsset(assetID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.selections, assetID)
}

// Reset 오버레이 전체 초기화
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reset()
}

// Users 사용자별 목록 (이름, ID 순)
func (t *Tracker) Users() []ConnectedUser {
	t.mu.RLock()
	defer t.mu.RUnlock()

	byUser := make(map[int64]*ConnectedUser)
	for _, s := range t.sessions {
		u, ok := byUser[s.UserID]
		if !ok {
			u = &ConnectedUser{
				UserID:    s.UserID,
				Initial:   initial(s),
				Email:     s.Email,
				FirstName: s.FirstName,
				Color:     UserColor(s.UserID),
			}
			byUser[s.UserID] = u
		}
		u.SessionCount++
	}

	out := make([]ConnectedUser, 0, len(byUser))
	for _, u := range byUser {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstName != out[j].FirstName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// SessionCount 자기 포함 접속 세션 수
func (t *Tracker) SessionCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

func (t *Tracker) Cursors() []RemoteCursor {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]RemoteCursor, 0, len(t.cursors))
	for _, c := range t.cursors {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

// Selectors 에셋을 선택 중인 세션
func (t *Tracker) Selectors(assetID int64) []RemoteSelector {
	t.mu.RLock()
	defer t.mu.RUnlock()

	holders := t.selections[assetID]
	out := make([]RemoteSelector, 0, len(holders))
	for _, s := range holders {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

func (t *Tracker) SelectedAssets() []int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]int64, 0, len(t.selections))
	for id := range t.selections {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t *Tracker) isSelf(sessionID string) bool {
	return t.self != "" && sessionID == t.self
}

// learn 다음 sync 전에 이벤트로 먼저 알게 된 세션 추가
func (t *Tracker) learn(s realtime.Sender) {
	if _, ok := t.sessions[s.SessionID]; !ok {
		t.sessions[s.SessionID] = s
	}
}

func (t *Tracker) reset() {
	t.sessions = make(map[string]realtime.Sender)
	t.cursors = make(map[string]RemoteCursor)
	t.selections = make(map[int64]map[string]RemoteSelector)
}

func initial(s realtime.Sender) string {
	name := strings.TrimSpace(s.FirstName)
	if name == "" {
		name = strings.TrimSpace(s.Email)
	}
	r, _ := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}
