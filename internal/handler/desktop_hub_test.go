package handler

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"desktop-realtime/internal/presence"
	"desktop-realtime/internal/realtime"
	"desktop-realtime/internal/session"
)

type captureConn struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (c *captureConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, data)
	return nil
}

func (c *captureConn) SetWriteDeadline(t time.Time) error { return nil }
func (c *captureConn) Close() error                       { return nil }

// types returns the message types written so far, in order.
func (c *captureConn) types() []realtime.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]realtime.EventType, 0, len(c.msgs))
	for _, m := range c.msgs {
		env, err := realtime.ParseEnvelope(m)
		if err == nil {
			out = append(out, env.Type)
		}
	}
	return out
}

func (c *captureConn) last(t realtime.EventType) (realtime.Envelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.msgs) - 1; i >= 0; i-- {
		env, err := realtime.ParseEnvelope(c.msgs[i])
		if err == nil && env.Type == t {
			return env, true
		}
	}
	return realtime.Envelope{}, false
}

func connect(t *testing.T, hub *DesktopHub, desktopID int64, sender realtime.Sender, canEdit bool) (*session.Session, *captureConn) {
	t.Helper()
	conn := &captureConn{}
	s := session.New(desktopID, sender, canEdit, conn, 64)
	go s.WritePump(0)
	hub.Join(s)
	t.Cleanup(func() { hub.Leave(s) })
	return s, conn
}

func msg(t *testing.T, typ realtime.EventType, payload any) []byte {
	t.Helper()
	data, err := realtime.Encode(typ, payload)
	require.NoError(t, err)
	return data
}

type fakeRoster struct {
	mu        sync.Mutex
	entries   map[int64]map[string]realtime.Sender
	published []presence.RelayMessage
	beats     int
	listErr   error
	deliver   func(presence.RelayMessage)
}

func newFakeRoster() *fakeRoster {
	return &fakeRoster{entries: map[int64]map[string]realtime.Sender{}}
}

func (r *fakeRoster) ServerID() string { return "node-a" }

func (r *fakeRoster) Join(ctx context.Context, desktopID int64, s realtime.Sender) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[desktopID] == nil {
		r.entries[desktopID] = map[string]realtime.Sender{}
	}
	r.entries[desktopID][s.SessionID] = s
	return nil
}

func (r *fakeRoster) Heartbeat(ctx context.Context, desktopID int64, s realtime.Sender) error {
	r.mu.Lock()
	r.beats++
	r.mu.Unlock()
	return r.Join(ctx, desktopID, s)
}

func (r *fakeRoster) Leave(ctx context.Context, desktopID int64, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries[desktopID], sessionID)
	return nil
}

func (r *fakeRoster) List(ctx context.Context, desktopID int64) ([]realtime.Sender, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []realtime.Sender
	for _, s := range r.entries[desktopID] {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

func (r *fakeRoster) Publish(ctx context.Context, desktopID int64, exceptSession string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, presence.RelayMessage{ServerID: "node-a", DesktopID: desktopID, ExceptSession: exceptSession, Data: data})
	return nil
}

func (r *fakeRoster) Subscribe(ctx context.Context, deliver func(presence.RelayMessage)) error {
	r.mu.Lock()
	r.deliver = deliver
	r.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (r *fakeRoster) subscribed() func(presence.RelayMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deliver
}

var (
	jiwoo = realtime.Sender{SessionID: "a", UserID: 1, FirstName: "Jiwoo"}
	seo   = realtime.Sender{SessionID: "b", UserID: 2, FirstName: "Seo"}
)

func TestHubRelaysToOthersWithStampedSender(t *testing.T) {
	hub := NewDesktopHub(nil)
	a, connA := connect(t, hub, 7, jiwoo, true)
	_, connB := connect(t, hub, 7, seo, true)
	_, connOther := connect(t, hub, 8, realtime.Sender{SessionID: "c", UserID: 3}, true)

	// 클라이언트가 sender 를 위조해도 릴레이가 덮어쓴다
	forged := []byte(`{"type":"asset_moved","payload":{"assetId":4,"posX":10,"posY":20},"sender":{"sessionId":"b","userId":2}}`)
	hub.HandleMessage(a, forged)

	require.Eventually(t, func() bool {
		_, ok := connB.last(realtime.EventAssetMoved)
		return ok
	}, time.Second, 5*time.Millisecond)

	env, _ := connB.last(realtime.EventAssetMoved)
	require.NotNil(t, env.Sender)
	assert.Equal(t, jiwoo, *env.Sender)

	ev, err := realtime.DecodeEnvelope(env)
	require.NoError(t, err)
	assert.Equal(t, realtime.AssetPosition{AssetID: 4, PosX: 10, PosY: 20}, ev.Payload)

	assert.NotContains(t, connA.types(), realtime.EventAssetMoved, "sender does not get an echo")
	assert.NotContains(t, connOther.types(), realtime.EventAssetMoved, "other desktops are isolated")
}

func TestHubAnswersPingOnlyToSender(t *testing.T) {
	roster := newFakeRoster()
	hub := NewDesktopHub(roster)
	a, connA := connect(t, hub, 7, jiwoo, true)
	_, connB := connect(t, hub, 7, seo, true)

	hub.HandleMessage(a, msg(t, realtime.EventPing, nil))

	require.Eventually(t, func() bool {
		_, ok := connA.last(realtime.EventPong)
		return ok
	}, time.Second, 5*time.Millisecond)
	assert.NotContains(t, connB.types(), realtime.EventPong)

	roster.mu.Lock()
	assert.Equal(t, 1, roster.beats)
	roster.mu.Unlock()
}

func TestHubDropsInvalidMessages(t *testing.T) {
	hub := NewDesktopHub(nil)
	a, _ := connect(t, hub, 7, jiwoo, true)
	viewer, _ := connect(t, hub, 7, realtime.Sender{SessionID: "v", UserID: 9}, false)
	_, connB := connect(t, hub, 7, seo, true)

	hub.HandleMessage(a, []byte(`{"type":"teleport","payload":{}}`))
	hub.HandleMessage(a, []byte(`{"type":"asset_moved","payload":{"assetId":4}}`))
	hub.HandleMessage(a, []byte(`not json`))
	hub.HandleMessage(a, msg(t, realtime.EventPresenceSync, realtime.PresenceSync{}))
	hub.HandleMessage(viewer, msg(t, realtime.EventAssetRemoved, realtime.AssetRef{AssetID: 4}))

	// 뷰어도 커서는 공유된다
	hub.HandleMessage(viewer, msg(t, realtime.EventCursorMove, realtime.CursorPosition{X: 1, Y: 2}))

	require.Eventually(t, func() bool {
		_, ok := connB.last(realtime.EventCursorMove)
		return ok
	}, time.Second, 5*time.Millisecond)

	for _, typ := range connB.types() {
		assert.Contains(t, []realtime.EventType{realtime.EventPresenceSync, realtime.EventCursorMove}, typ)
	}
}

func TestHubPresenceSyncOnJoinAndLeave(t *testing.T) {
	hub := NewDesktopHub(nil)
	_, connA := connect(t, hub, 7, jiwoo, true)
	b, _ := connect(t, hub, 7, seo, true)

	sessionsIn := func() []string {
		env, ok := connA.last(realtime.EventPresenceSync)
		if !ok {
			return nil
		}
		ev, err := realtime.DecodeEnvelope(env)
		if err != nil {
			return nil
		}
		var ids []string
		for _, s := range ev.Payload.(realtime.PresenceSync).Sessions {
			ids = append(ids, s.SessionID)
		}
		return ids
	}

	require.Eventually(t, func() bool { return assert.ObjectsAreEqual([]string{"a", "b"}, sessionsIn()) }, time.Second, 5*time.Millisecond)

	hub.Leave(b)
	require.Eventually(t, func() bool { return assert.ObjectsAreEqual([]string{"a"}, sessionsIn()) }, time.Second, 5*time.Millisecond)

	rooms, sessions := hub.SessionCount()
	assert.Equal(t, 1, rooms)
	assert.Equal(t, 1, sessions)
}

func TestHubRenamesDuplicateSession(t *testing.T) {
	hub := NewDesktopHub(nil)
	connect(t, hub, 7, jiwoo, true)
	dup, _ := connect(t, hub, 7, jiwoo, true)

	assert.NotEqual(t, "a", dup.ID)
	assert.Len(t, hub.Sessions(context.Background(), 7), 2)
}

func TestHubRemovesEmptyRoom(t *testing.T) {
	hub := NewDesktopHub(nil)
	conn := &captureConn{}
	s := session.New(7, jiwoo, true, conn, 8)
	hub.Join(s)
	hub.Leave(s)
	hub.Leave(s)

	rooms, sessions := hub.SessionCount()
	assert.Zero(t, rooms)
	assert.Zero(t, sessions)
	assert.True(t, s.IsClosed())
}

func TestHubMultiNodeFanOut(t *testing.T) {
	roster := newFakeRoster()
	hub := NewDesktopHub(roster)
	a, _ := connect(t, hub, 7, jiwoo, true)
	_, connB := connect(t, hub, 7, seo, true)

	hub.HandleMessage(a, msg(t, realtime.EventAssetSelected, realtime.AssetRef{AssetID: 3}))

	roster.mu.Lock()
	var relayed []presence.RelayMessage
	for _, m := range roster.published {
		env, err := realtime.ParseEnvelope(m.Data)
		if err == nil && env.Type == realtime.EventAssetSelected {
			relayed = append(relayed, m)
		}
	}
	roster.mu.Unlock()
	require.Len(t, relayed, 1)
	assert.Equal(t, "a", relayed[0].ExceptSession)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)
	require.Eventually(t, func() bool { return roster.subscribed() != nil }, time.Second, 5*time.Millisecond)

	remote, err := json.Marshal(realtime.Envelope{
		Type:    realtime.EventCursorLeave,
		Payload: json.RawMessage(`{}`),
		Sender:  &realtime.Sender{SessionID: "z", UserID: 30},
	})
	require.NoError(t, err)
	roster.subscribed()(presence.RelayMessage{ServerID: "node-b", DesktopID: 7, ExceptSession: "z", Data: remote})

	require.Eventually(t, func() bool {
		_, ok := connB.last(realtime.EventCursorLeave)
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestHubSessionsFallsBackToLocal(t *testing.T) {
	roster := newFakeRoster()
	roster.listErr = errors.New("redis down")
	hub := NewDesktopHub(roster)
	connect(t, hub, 7, jiwoo, true)

	assert.Equal(t, []realtime.Sender{jiwoo}, hub.Sessions(context.Background(), 7))
}
