package canvas

import (
	"errors"
	"time"

	"github.com/benbjohnson/clock"

	"desktop-realtime/internal/model"
	"desktop-realtime/internal/realtime"
)

// Options 기본값
const (
	DefaultZoomSensitivity = 0.001
	DefaultCullPadding     = 200.0
	DefaultFitPadding      = 100.0
)

var (
	ErrNoMenu        = errors.New("no context menu open")
	ErrUnknownAction = errors.New("unknown menu action")
)

// Broadcaster 다른 세션으로 실시간 이벤트 전송 (fire-and-forget)
type Broadcaster interface {
	Send(t realtime.EventType, payload any)
}

// Mutator 확정된 편집 저장. 호출자를 블로킹하면 안 됨
type Mutator interface {
	MoveAsset(id int64, x, y float64)
	BatchMoveAssets(moves []model.AssetMove)
	RemoveAsset(id int64)
	BatchRemoveAssets(ids []int64)
}

// Options 엔진 설정
type Options struct {
	Clock             clock.Clock
	BroadcastInterval time.Duration
	ZoomSensitivity   float64
	CullPadding       float64
	FitPadding        float64

	// 사용자 조작으로 카메라가 바뀔 때마다 호출
	OnCameraChange func(Camera)
	// 컨텍스트 메뉴의 "채팅에서 열기"
	OnOpenChat func(chatID string)
}

func (o *Options) setDefaults() {
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.BroadcastInterval <= 0 {
		o.BroadcastInterval = DefaultBroadcastInterval
	}
	if o.ZoomSensitivity <= 0 {
		o.ZoomSensitivity = DefaultZoomSensitivity
	}
	if o.CullPadding < 0 {
		o.CullPadding = 0
	} else if o.CullPadding == 0 {
		o.CullPadding = DefaultCullPadding
	}
	if o.FitPadding <= 0 {
		o.FitPadding = DefaultFitPadding
	}
}

type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// PointerEvent 클라이언트 좌표 기준 포인터 입력
type PointerEvent struct {
	Client Point
	Button Button
	Shift  bool
}

// MenuAction 에셋 컨텍스트 메뉴 항목
type MenuAction string

const (
	MenuDelete     MenuAction = "delete"
	MenuOpenInChat MenuAction = "open_in_chat"
)

// ContextMenu 열려 있는 에셋 메뉴
type ContextMenu struct {
	AssetID int64
	At      Point
	Actions []MenuAction
	ChatID  string
}

// =============================================================================
// Engine
// =============================================================================

type gestureKind int

const (
	gestureNone gestureKind = iota
	gesturePan
	gestureMarquee
	gestureDrag
)

type gesture struct {
	kind gestureKind

	startClient Point
	startCamera Camera
	startWorld  Point

	marquee Rect

	grabbed int64
	ids     []int64
	origins map[int64]Point
	moved   bool
}

// Engine 포인터 입력 -> 카메라/선택/에셋 편집
// 동시 호출 불가. 소유 세션이 원격 이벤트 처리와 직렬화한다
type Engine struct {
	opts     Options
	store    *Store
	geometry *GeometryCache
	sel      *Selection
	out      Broadcaster
	mut      Mutator
	throttle *Throttle

	camera   Camera
	viewport Viewport
	g        gesture
	menu     *ContextMenu
	captured bool
}

// NewEngine 생성자. 읽기 전용 캔버스면 out, mut 은 nil 가능
func NewEngine(store *Store, geometry *GeometryCache, out Broadcaster, mut Mutator, opts Options) *Engine {
	opts.setDefaults()
	return &Engine{
		opts:     opts,
		store:    store,
		geometry: geometry,
		sel:      NewSelection(),
		out:      out,
		mut:      mut,
		throttle: NewThrottle(opts.Clock, opts.BroadcastInterval),
		camera:   DefaultCamera(),
	}
}

func (e *Engine) Camera() Camera { return e.camera }

// SetCamera 카메라 교체 (저장된 뷰포트 복원용, OnCameraChange 호출 안 함)
func (e *Engine) SetCamera(c Camera) { e.camera = c.Normalize() }

func (e *Engine) Viewport() Viewport { return e.viewport }

// SetViewport 레이아웃 변경 반영
func (e *Engine) SetViewport(v Viewport) { e.viewport = v }

func (e *Engine) Selected() []int64 { return e.sel.IDs() }

func (e *Engine) IsSelected(id int64) bool { return e.sel.Has(id) }

func (e *Engine) Menu() *ContextMenu { return e.menu }

// Captured 드래그 중 컨테이너가 포인터를 캡처하고 있는지
func (e *Engine) Captured() bool { return e.captured }

func (e *Engine) Dragging() bool { return e.g.kind == gestureDrag }

// Marquee 그리는 중인 마퀴 (월드 좌표)
func (e *Engine) Marquee() (Rect, bool) {
	if e.g.kind != gestureMarquee {
		return Rect{}, false
	}
	return e.g.marquee, true
}

// =============================================================================
// 포인터 입력
// =============================================================================

// PointerDown 제스처 시작. target 은 포인터 아래 에셋 (배경이면 0)
func (e *Engine) PointerDown(ev PointerEvent, target int64) {
	if target != 0 {
		if _, ok := e.store.Get(target); !ok {
			target = 0
		}
	}

	if ev.Button == ButtonSecondary {
		if target != 0 {
			e.openMenu(target, ev.Client)
		} else {
			e.menu = nil
		}
		return
	}
	e.menu = nil

	world := e.camera.ScreenToWorld(e.viewport, ev.Client)

	if target == 0 {
		if ev.Shift {
			e.g = gesture{
				kind:       gestureMarquee,
				startWorld: world,
				marquee:    Rect{X: world.X, Y: world.Y},
			}
			return
		}
		e.ClearSelection()
		e.g = gesture{
			kind:        gesturePan,
			startClient: ev.Client,
			startCamera: e.camera,
		}
		return
	}

	if ev.Shift {
		if e.sel.Toggle(target) {
			e.emit(realtime.EventAssetSelected, realtime.AssetRef{AssetID: target})
		} else {
			e.emit(realtime.EventAssetDeselected, realtime.AssetRef{AssetID: target})
		}
		return
	}

	if !e.sel.Has(target) {
		e.replaceSelection(target)
	}

	ids := []int64{target}
	if e.sel.Len() > 1 {
		ids = e.sel.IDs()
	}
	origins := make(map[int64]Point, len(ids))
	for _, id := range ids {
		if a, ok := e.store.Get(id); ok {
			origins[id] = Point{X: a.PosX, Y: a.PosY}
		}
	}
	e.g = gesture{
		kind:       gestureDrag,
		startWorld: world,
		grabbed:    target,
		ids:        ids,
		origins:    origins,
	}
	e.captured = true
}

// PointerMove 제스처 진행 + 커서/드래그 위치 브로드캐스트 (간격당 1회)
func (e *Engine) PointerMove(ev PointerEvent) {
	world := e.camera.ScreenToWorld(e.viewport, ev.Client)

	switch e.g.kind {
	case gesturePan:
		e.camera = e.g.startCamera.Pan(ev.Client.Sub(e.g.startClient))
		e.cameraChanged()
	case gestureMarquee:
		e.g.marquee = RectFromCorners(e.g.startWorld, world)
	case gestureDrag:
		e.dragTo(world)
		if e.throttle.Allow() {
			for _, id := range e.g.ids {
				if a, ok := e.store.Get(id); ok {
					e.emit(realtime.EventAssetDragging, realtime.AssetPosition{AssetID: id, PosX: a.PosX, PosY: a.PosY})
				}
			}
		}
		return
	}

	if e.throttle.Allow() {
		e.emit(realtime.EventCursorMove, realtime.CursorPosition{X: world.X, Y: world.Y})
	}
}

// PointerUp 제스처 종료 및 결과 확정
func (e *Engine) PointerUp(ev PointerEvent) {
	g := e.g
	e.g = gesture{}
	e.captured = false

	switch g.kind {
	case gestureMarquee:
		world := e.camera.ScreenToWorld(e.viewport, ev.Client)
		e.selectInRect(RectFromCorners(g.startWorld, world))

	case gestureDrag:
		e.g = g
		e.dragTo(e.camera.ScreenToWorld(e.viewport, ev.Client))
		g = e.g
		e.g = gesture{}
		if g.moved {
			e.commitDrag(g)
		}
	}
}

// PointerLeave 커서가 캔버스를 벗어남을 알림
func (e *Engine) PointerLeave() {
	e.emit(realtime.EventCursorLeave, nil)
	e.throttle.Reset()
}

// Wheel 포인터 기준 줌
func (e *Engine) Wheel(ev PointerEvent, deltaY float64) {
	e.camera = e.camera.WheelZoom(e.viewport.Local(ev.Client), deltaY, e.opts.ZoomSensitivity)
	e.cameraChanged()
}

// KeyDown Delete/Backspace 는 선택 삭제, Escape 는 선택 해제 + 메뉴 닫기
func (e *Engine) KeyDown(key string) {
	switch key {
	case "Delete", "Backspace":
		e.DeleteSelection()
	case "Escape":
		e.menu = nil
		e.ClearSelection()
	}
}

// =============================================================================
// 툴바
// =============================================================================

func (e *Engine) ZoomIn() {
	e.camera = e.camera.ZoomIn(e.viewport)
	e.cameraChanged()
}

func (e *Engine) ZoomOut() {
	e.camera = e.camera.ZoomOut(e.viewport)
	e.cameraChanged()
}

func (e *Engine) ResetZoom() {
	e.camera = e.camera.ResetZoom(e.viewport)
	e.cameraChanged()
}

// Fit 모든 에셋이 보이도록 맞춤
func (e *Engine) Fit() {
	assets := e.store.All()
	rects := make([]Rect, 0, len(assets))
	for _, a := range assets {
		rects = append(rects, e.geometry.Geometry(a))
	}
	e.camera = FitToContent(rects, e.viewport.Size, e.opts.FitPadding)
	e.cameraChanged()
}

// ClearSelection 선택 해제 후 해제 이벤트 전송
func (e *Engine) ClearSelection() {
	for _, id := range e.sel.Clear() {
		e.emit(realtime.EventAssetDeselected, realtime.AssetRef{AssetID: id})
	}
}

func (e *Engine) DeleteSelection() {
	e.deleteAssets(e.sel.IDs())
}

// RunMenuAction 메뉴 항목 실행 후 메뉴 닫기
func (e *Engine) RunMenuAction(action MenuAction) error {
	menu := e.menu
	if menu == nil {
		return ErrNoMenu
	}

	switch action {
	case MenuDelete:
		e.menu = nil
		if e.sel.Has(menu.AssetID) && e.sel.Len() > 1 {
			e.deleteAssets(e.sel.IDs())
		} else {
			e.deleteAssets([]int64{menu.AssetID})
		}
		return nil
	case MenuOpenInChat:
		if menu.ChatID == "" {
			return ErrUnknownAction
		}
		e.menu = nil
		if e.opts.OnOpenChat != nil {
			e.opts.OnOpenChat(menu.ChatID)
		}
		return nil
	}
	return ErrUnknownAction
}

// ForgetAsset 삭제된 에셋 참조 정리 (선택, 크기 캐시, 드래그, 메뉴)
// 로컬 삭제와 원격 asset_removed 모두 여기를 거친다
func (e *Engine) ForgetAsset(id int64) {
	e.sel.Remove(id)
	e.geometry.Forget(id)
	if e.menu != nil && e.menu.AssetID == id {
		e.menu = nil
	}
	if e.g.kind == gestureDrag {
		delete(e.g.origins, id)
		kept := e.g.ids[:0]
		for _, other := range e.g.ids {
			if other != id {
				kept = append(kept, other)
			}
		}
		e.g.ids = kept
		if id == e.g.grabbed || len(kept) == 0 {
			e.g = gesture{}
			e.captured = false
		}
	}
}

// VisibleAssets 컬링 여백을 더한 화면과 겹치는 에셋 (그리는 순서)
func (e *Engine) VisibleAssets() []*model.DesktopAsset {
	visible := e.camera.VisibleWorldRect(e.viewport.Size).Expand(e.opts.CullPadding)
	all := e.store.All()
	out := make([]*model.DesktopAsset, 0, len(all))
	for _, a := range all {
		if e.geometry.Geometry(a).Intersects(visible) {
			out = append(out, a)
		}
	}
	return out
}

// HitTest 월드 좌표의 최상단 에셋 (없으면 0)
func (e *Engine) HitTest(world Point) int64 {
	all := e.store.All()
	for i := len(all) - 1; i >= 0; i-- {
		if e.geometry.Geometry(all[i]).Contains(world) {
			return all[i].ID
		}
	}
	return 0
}

func (e *Engine) AssetsInRect(r Rect) []int64 {
	var ids []int64
	for _, a := range e.store.All() {
		if e.geometry.Geometry(a).Intersects(r) {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func (e *Engine) selectInRect(r Rect) {
	added, removed := e.sel.Set(e.AssetsInRect(r)...)
	for _, id := range removed {
		e.emit(realtime.EventAssetDeselected, realtime.AssetRef{AssetID: id})
	}
	for _, id := range added {
		e.emit(realtime.EventAssetSelected, realtime.AssetRef{AssetID: id})
	}
}

func (e *Engine) replaceSelection(id int64) {
	added, removed := e.sel.Set(id)
	for _, old := range removed {
		e.emit(realtime.EventAssetDeselected, realtime.AssetRef{AssetID: old})
	}
	for _, nu := range added {
		e.emit(realtime.EventAssetSelected, realtime.AssetRef{AssetID: nu})
	}
}

func (e *Engine) openMenu(id int64, at Point) {
	if !e.sel.Has(id) {
		e.replaceSelection(id)
	}
	menu := &ContextMenu{AssetID: id, At: at, Actions: []MenuAction{MenuDelete}}
	if a, ok := e.store.Get(id); ok {
		if chatID, ok := a.SourceChatID(); ok {
			menu.ChatID = chatID
			menu.Actions = append(menu.Actions, MenuOpenInChat)
		}
	}
	e.menu = menu
}

// dragTo 잡은 에셋의 이동량만큼 전체 이동. 항상 pointer-down 시점 위치 기준이라
// 경로에 따른 오차가 쌓이지 않는다
func (e *Engine) dragTo(world Point) {
	if _, ok := e.g.origins[e.g.grabbed]; !ok {
		return
	}
	delta := world.Sub(e.g.startWorld)
	if delta.X != 0 || delta.Y != 0 {
		e.g.moved = true
	}
	for _, id := range e.g.ids {
		if o, ok := e.g.origins[id]; ok {
			e.store.Move(id, o.X+delta.X, o.Y+delta.Y)
		}
	}
}

func (e *Engine) commitDrag(g gesture) {
	moves := make([]model.AssetMove, 0, len(g.ids))
	for _, id := range g.ids {
		if a, ok := e.store.Get(id); ok {
			moves = append(moves, model.AssetMove{AssetID: id, PosX: a.PosX, PosY: a.PosY})
		}
	}
	if len(moves) == 0 {
		return
	}

	if e.mut != nil {
		if len(moves) == 1 {
			e.mut.MoveAsset(moves[0].AssetID, moves[0].PosX, moves[0].PosY)
		} else {
			e.mut.BatchMoveAssets(moves)
		}
	}
	for _, m := range moves {
		e.emit(realtime.EventAssetMoved, realtime.AssetPosition{AssetID: m.AssetID, PosX: m.PosX, PosY: m.PosY})
	}
}

func (e *Engine) deleteAssets(ids []int64) {
	removed := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !e.store.Remove(id) {
			continue
		}
		e.ForgetAsset(id)
		removed = append(removed, id)
		e.emit(realtime.EventAssetRemoved, realtime.AssetRef{AssetID: id})
	}
	if e.mut == nil || len(removed) == 0 {
		return
	}
	if len(removed) == 1 {
		e.mut.RemoveAsset(removed[0])
	} else {
		e.mut.BatchRemoveAssets(removed)
	}
}

func (e *Engine) cameraChanged() {
	if e.opts.OnCameraChange != nil {
		e.opts.OnCameraChange(e.camera)
	}
}

func (e *Engine) emit(t realtime.EventType, payload any) {
	if e.out != nil {
		e.out.Send(t, payload)
	}
}
