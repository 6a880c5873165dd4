package canvas

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"desktop-realtime/internal/model"
	"desktop-realtime/internal/realtime"
)

type sent struct {
	Type    realtime.EventType
	Payload any
}

type recordingBroadcaster struct {
	sent []sent
}

func (b *recordingBroadcaster) Send(t realtime.EventType, payload any) {
	b.sent = append(b.sent, sent{Type: t, Payload: payload})
}

func (b *recordingBroadcaster) ofType(t realtime.EventType) []sent {
	var out []sent
	for _, s := range b.sent {
		if s.Type == t {
			out = append(out, s)
		}
	}
	return out
}

func (b *recordingBroadcaster) reset() { b.sent = nil }

type recordingMutator struct {
	moves        []model.AssetMove
	batchMoves   [][]model.AssetMove
	removes      []int64
	batchRemoves [][]int64
}

func (m *recordingMutator) MoveAsset(id int64, x, y float64) {
	m.moves = append(m.moves, model.AssetMove{AssetID: id, PosX: x, PosY: y})
}

func (m *recordingMutator) BatchMoveAssets(moves []model.AssetMove) {
	m.batchMoves = append(m.batchMoves, moves)
}

func (m *recordingMutator) RemoveAsset(id int64) {
	m.removes = append(m.removes, id)
}

func (m *recordingMutator) BatchRemoveAssets(ids []int64) {
	m.batchRemoves = append(m.batchRemoves, ids)
}

func box(id int64, x, y, w, h float64) model.DesktopAsset {
	return model.DesktopAsset{ID: id, AssetType: model.AssetTypeImage, PosX: x, PosY: y, Width: &w, Height: &h}
}

type fixture struct {
	engine  *Engine
	store   *Store
	out     *recordingBroadcaster
	mut     *recordingMutator
	clock   *clock.Mock
	cameras []Camera
}

// newFixture 원점에 나란한 박스 둘 + 멀리 떨어진 박스 하나
func newFixture(t *testing.T, extra ...model.DesktopAsset) *fixture {
	t.Helper()
	f := &fixture{
		store: NewStore(),
		out:   &recordingBroadcaster{},
		mut:   &recordingMutator{},
		clock: clock.NewMock(),
	}
	assets := []model.DesktopAsset{
		box(1, 0, 0, 100, 100),
		box(2, 150, 0, 100, 100),
		box(3, 400, 400, 100, 100),
	}
	f.store.Replace(append(assets, extra...))
	f.engine = NewEngine(f.store, NewGeometryCache(0), f.out, f.mut, Options{
		Clock:          f.clock,
		OnCameraChange: func(c Camera) { f.cameras = append(f.cameras, c) },
	})
	f.engine.SetViewport(Viewport{Size: Size{W: 1000, H: 800}})
	return f
}

func at(x, y float64) PointerEvent {
	return PointerEvent{Client: Point{X: x, Y: y}}
}

func shiftAt(x, y float64) PointerEvent {
	return PointerEvent{Client: Point{X: x, Y: y}, Shift: true}
}

func (f *fixture) marquee(x0, y0, x1, y1 float64) {
	f.engine.PointerDown(shiftAt(x0, y0), 0)
	f.engine.PointerMove(shiftAt(x1, y1))
	f.engine.PointerUp(shiftAt(x1, y1))
}

func (f *fixture) pos(id int64) Point {
	a, ok := f.store.Get(id)
	if !ok {
		return Point{}
	}
	return Point{X: a.PosX, Y: a.PosY}
}

func TestMarqueeSelectsIntersectingAssets(t *testing.T) {
	f := newFixture(t)

	f.marquee(0, 0, 200, 200)

	assert.Equal(t, []int64{1, 2}, f.engine.Selected())
	assert.Equal(t, []sent{
		{realtime.EventAssetSelected, realtime.AssetRef{AssetID: 1}},
		{realtime.EventAssetSelected, realtime.AssetRef{AssetID: 2}},
	}, f.out.ofType(realtime.EventAssetSelected))
	_, drawing := f.engine.Marquee()
	assert.False(t, drawing)
}

func TestMarqueeEmitsOnlyTheDelta(t *testing.T) {
	f := newFixture(t)
	f.marquee(0, 0, 200, 200)
	f.out.reset()

	// 좌상단으로 드래그, asset 2 만 포함
	f.marquee(260, 50, 140, 10)

	assert.Equal(t, []int64{2}, f.engine.Selected())
	assert.Equal(t, []sent{
		{realtime.EventAssetDeselected, realtime.AssetRef{AssetID: 1}},
	}, f.withoutCursor())
}

func (f *fixture) withoutCursor() []sent {
	var out []sent
	for _, s := range f.out.sent {
		if s.Type != realtime.EventCursorMove {
			out = append(out, s)
		}
	}
	return out
}

func TestGroupDragMovesEveryAssetByTheSameDelta(t *testing.T) {
	f := newFixture(t)
	f.marquee(0, 0, 200, 200)
	f.out.reset()

	before := map[int64]Point{1: f.pos(1), 2: f.pos(2)}
	dx, dy := 37.5, -12.25

	f.engine.PointerDown(at(50, 50), 1)
	require.True(t, f.engine.Dragging())
	require.True(t, f.engine.Captured())

	// 움직이다가 멈춤
	for _, p := range []Point{{X: 90, Y: 10}, {X: -300, Y: 700}, {X: 51, Y: 49}, {X: 120.3, Y: 60.7}} {
		f.engine.PointerMove(at(p.X, p.Y))
		f.clock.Add(50 * time.Millisecond)
	}
	f.engine.PointerUp(at(50+dx, 50+dy))

	for id, p := range before {
		assert.Equal(t, Point{X: p.X + dx, Y: p.Y + dy}, f.pos(id), "asset %d", id)
	}
	assert.Equal(t, Point{X: 400, Y: 400}, f.pos(3), "unselected asset stays")

	require.Len(t, f.mut.batchMoves, 1)
	assert.ElementsMatch(t, []model.AssetMove{
		{AssetID: 1, PosX: dx, PosY: dy},
		{AssetID: 2, PosX: 150 + dx, PosY: dy},
	}, f.mut.batchMoves[0])
	assert.Empty(t, f.mut.moves)

	assert.Len(t, f.out.ofType(realtime.EventAssetMoved), 2, "one event per moved asset")
	assert.NotEmpty(t, f.out.ofType(realtime.EventAssetDragging))
	assert.False(t, f.engine.Captured())
}

func TestSingleDragReplacesSelection(t *testing.T) {
	f := newFixture(t)
	f.marquee(0, 0, 200, 200)
	f.out.reset()

	f.engine.PointerDown(at(450, 450), 3)
	assert.Equal(t, []int64{3}, f.engine.Selected())
	assert.Equal(t, []sent{
		{realtime.EventAssetDeselected, realtime.AssetRef{AssetID: 1}},
		{realtime.EventAssetDeselected, realtime.AssetRef{AssetID: 2}},
		{realtime.EventAssetSelected, realtime.AssetRef{AssetID: 3}},
	}, f.out.sent)

	f.engine.PointerMove(at(460, 470))
	f.engine.PointerUp(at(460, 470))

	assert.Equal(t, []model.AssetMove{{AssetID: 3, PosX: 410, PosY: 420}}, f.mut.moves)
	assert.Empty(t, f.mut.batchMoves)
}

func TestClickWithoutMoveDoesNotCommit(t *testing.T) {
	f := newFixture(t)

	f.engine.PointerDown(at(50, 50), 1)
	f.engine.PointerUp(at(50, 50))

	assert.Empty(t, f.mut.moves)
	assert.Empty(t, f.out.ofType(realtime.EventAssetMoved))
	assert.Equal(t, []int64{1}, f.engine.Selected())
}

func TestShiftClickTogglesWithoutDrag(t *testing.T) {
	f := newFixture(t)

	f.engine.PointerDown(shiftAt(50, 50), 1)
	assert.False(t, f.engine.Dragging())
	f.engine.PointerUp(shiftAt(50, 50))
	f.engine.PointerDown(shiftAt(200, 50), 2)
	f.engine.PointerUp(shiftAt(200, 50))
	assert.Equal(t, []int64{1, 2}, f.engine.Selected())

	f.engine.PointerDown(shiftAt(50, 50), 1)
	f.engine.PointerUp(shiftAt(50, 50))
	assert.Equal(t, []int64{2}, f.engine.Selected())
	assert.Equal(t, sent{realtime.EventAssetDeselected, realtime.AssetRef{AssetID: 1}}, f.out.sent[len(f.out.sent)-1])
}

func TestPointerMoveBurstIsThrottled(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 1000; i++ {
		f.engine.PointerMove(at(float64(i), float64(i)))
	}
	assert.Len(t, f.out.ofType(realtime.EventCursorMove), 1)

	f.clock.Add(39 * time.Millisecond)
	f.engine.PointerMove(at(5, 5))
	assert.Len(t, f.out.ofType(realtime.EventCursorMove), 1)

	f.clock.Add(time.Millisecond)
	f.engine.PointerMove(at(5, 5))
	assert.Len(t, f.out.ofType(realtime.EventCursorMove), 2)
}

func TestDragBurstIsThrottled(t *testing.T) {
	f := newFixture(t)
	f.engine.PointerDown(at(50, 50), 1)
	f.out.reset()

	for i := 0; i < 1000; i++ {
		f.engine.PointerMove(at(50+float64(i)/10, 50))
	}

	assert.Len(t, f.out.ofType(realtime.EventAssetDragging), 1)
	assert.Empty(t, f.out.ofType(realtime.EventCursorMove), "no cursor frames while dragging")
	assert.InDelta(t, 99.9, f.pos(1).X, 1e-9, "local state follows every frame")
}

func TestCursorBroadcastIsInWorldSpace(t *testing.T) {
	f := newFixture(t)
	f.engine.SetCamera(Camera{X: 100, Y: 50, Zoom: 2})

	f.engine.PointerMove(at(300, 250))

	assert.Equal(t, []sent{{realtime.EventCursorMove, realtime.CursorPosition{X: 100, Y: 100}}}, f.out.sent)
}

func TestPointerLeaveEmitsCursorLeave(t *testing.T) {
	f := newFixture(t)
	f.engine.PointerMove(at(1, 1))
	f.engine.PointerLeave()

	assert.Equal(t, realtime.EventCursorLeave, f.out.sent[len(f.out.sent)-1].Type)
}

func TestPanClearsSelectionAndMovesCamera(t *testing.T) {
	f := newFixture(t)
	f.marquee(0, 0, 200, 200)
	f.out.reset()

	f.engine.PointerDown(at(600, 600), 0)
	assert.Empty(t, f.engine.Selected())
	assert.Len(t, f.out.ofType(realtime.EventAssetDeselected), 2)

	f.engine.PointerMove(at(650, 630))
	f.engine.PointerMove(at(700, 500))
	f.engine.PointerUp(at(700, 500))

	assert.Equal(t, Camera{X: 100, Y: -100, Zoom: 1}, f.engine.Camera())
	require.NotEmpty(t, f.cameras)
	assert.Equal(t, f.engine.Camera(), f.cameras[len(f.cameras)-1])
}

func TestWheelZoomKeepsPointerAnchor(t *testing.T) {
	f := newFixture(t)
	f.engine.SetViewport(Viewport{Origin: Point{X: 20, Y: 30}, Size: Size{W: 1000, H: 800}})
	ev := at(420, 330)

	before := f.engine.Camera().ScreenToWorld(f.engine.Viewport(), ev.Client)
	f.engine.Wheel(ev, -240)
	after := f.engine.Camera().ScreenToWorld(f.engine.Viewport(), ev.Client)

	assert.Greater(t, f.engine.Camera().Zoom, 1.0)
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)
	assert.Len(t, f.cameras, 1)
}

func TestDeleteKeyRemovesSelection(t *testing.T) {
	f := newFixture(t)
	f.marquee(0, 0, 200, 200)
	f.out.reset()

	f.engine.KeyDown("Delete")

	assert.Equal(t, 1, f.store.Len())
	assert.Empty(t, f.engine.Selected())
	assert.Equal(t, [][]int64{{1, 2}}, f.mut.batchRemoves)
	assert.Equal(t, []sent{
		{realtime.EventAssetRemoved, realtime.AssetRef{AssetID: 1}},
		{realtime.EventAssetRemoved, realtime.AssetRef{AssetID: 2}},
	}, f.out.sent)
}

func TestEscapeClearsSelection(t *testing.T) {
	f := newFixture(t)
	f.engine.PointerDown(at(50, 50), 1)
	f.engine.PointerUp(at(50, 50))
	f.out.reset()

	f.engine.KeyDown("Escape")

	assert.Empty(t, f.engine.Selected())
	assert.Equal(t, []sent{{realtime.EventAssetDeselected, realtime.AssetRef{AssetID: 1}}}, f.out.sent)
}

func TestContextMenu(t *testing.T) {
	chat := box(4, 600, 0, 100, 100)
	chat.Metadata = datatypes.JSON(`{"chatId":"room-7"}`)
	f := newFixture(t, chat)

	var opened string
	f.engine.opts.OnOpenChat = func(id string) { opened = id }

	f.engine.PointerDown(PointerEvent{Client: Point{X: 650, Y: 50}, Button: ButtonSecondary}, 4)
	menu := f.engine.Menu()
	require.NotNil(t, menu)
	assert.Equal(t, int64(4), menu.AssetID)
	assert.Equal(t, []MenuAction{MenuDelete, MenuOpenInChat}, menu.Actions)
	assert.Equal(t, []int64{4}, f.engine.Selected(), "right-click auto-selects")

	require.NoError(t, f.engine.RunMenuAction(MenuOpenInChat))
	assert.Equal(t, "room-7", opened)
	assert.Nil(t, f.engine.Menu())
	assert.ErrorIs(t, f.engine.RunMenuAction(MenuDelete), ErrNoMenu)
}

func TestContextMenuDelete(t *testing.T) {
	f := newFixture(t)

	f.engine.PointerDown(PointerEvent{Client: Point{X: 450, Y: 450}, Button: ButtonSecondary}, 3)
	require.NotNil(t, f.engine.Menu())
	assert.Equal(t, []MenuAction{MenuDelete}, f.engine.Menu().Actions, "no chat reference")

	require.NoError(t, f.engine.RunMenuAction(MenuDelete))
	assert.Equal(t, []int64{3}, f.mut.removes)
	_, ok := f.store.Get(3)
	assert.False(t, ok)
}

func TestPointerDownClosesMenu(t *testing.T) {
	f := newFixture(t)
	f.engine.PointerDown(PointerEvent{Client: Point{X: 450, Y: 450}, Button: ButtonSecondary}, 3)
	require.NotNil(t, f.engine.Menu())

	f.engine.PointerDown(at(900, 700), 0)
	assert.Nil(t, f.engine.Menu())
}

func TestFitOnEmptyStoreResetsCamera(t *testing.T) {
	f := newFixture(t)
	f.store.Replace(nil)
	f.engine.SetCamera(Camera{X: 300, Y: -20, Zoom: 3})

	f.engine.Fit()

	assert.Equal(t, Camera{X: 0, Y: 0, Zoom: 1}, f.engine.Camera())
}

func TestVisibleAssetsCullsWithPadding(t *testing.T) {
	f := newFixture(t, box(5, 1150, 0, 10, 10), box(6, 1300, 0, 10, 10))

	var ids []int64
	for _, a := range f.engine.VisibleAssets() {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []int64{1, 2, 3, 5}, ids)
}

func TestHitTestPrefersTopmost(t *testing.T) {
	top := box(7, 50, 50, 100, 100)
	top.ZIndex = 10
	f := newFixture(t, top)

	assert.Equal(t, int64(7), f.engine.HitTest(Point{X: 60, Y: 60}))
	assert.Equal(t, int64(1), f.engine.HitTest(Point{X: 10, Y: 10}))
	assert.Equal(t, int64(0), f.engine.HitTest(Point{X: 300, Y: 300}))
}

func TestForgetAssetCancelsDragOfIt(t *testing.T) {
	f := newFixture(t)
	f.engine.PointerDown(at(50, 50), 1)
	require.True(t, f.engine.Dragging())

	f.store.Remove(1)
	f.engine.ForgetAsset(1)

	assert.False(t, f.engine.Dragging())
	assert.False(t, f.engine.Captured())
	assert.Empty(t, f.engine.Selected())
}
