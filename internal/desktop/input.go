package desktop

import (
	"desktop-realtime/internal/canvas"
	"desktop-realtime/internal/model"
	"desktop-realtime/internal/presence"
	"desktop-realtime/internal/realtime"
)

// =============================================================================
// 입력 - 세션 락을 잡아 로컬 입력과 원격 이벤트가 섞이지 않게 한다
// =============================================================================

func (s *Session) PointerDown(ev canvas.PointerEvent, target int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.PointerDown(ev, target)
}

func (s *Session) PointerMove(ev canvas.PointerEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.PointerMove(ev)
}

func (s *Session) PointerUp(ev canvas.PointerEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.PointerUp(ev)
}

func (s *Session) PointerLeave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.PointerLeave()
}

func (s *Session) Wheel(ev canvas.PointerEvent, deltaY float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Wheel(ev, deltaY)
}

func (s *Session) KeyDown(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.KeyDown(key)
}

func (s *Session) RunMenuAction(action canvas.MenuAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.RunMenuAction(action)
}

// =============================================================================
// 툴바
// =============================================================================

func (s *Session) ZoomIn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.ZoomIn()
}

func (s *Session) ZoomOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.ZoomOut()
}

func (s *Session) ResetZoom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.ResetZoom()
}

func (s *Session) Fit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Fit()
}

func (s *Session) SetViewport(v canvas.Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetViewport(v)
}

// MediaLoaded 이미지/비디오 원본 크기 보고
func (s *Session) MediaLoaded(id int64, naturalW, naturalH float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.store.Get(id); ok {
		s.geometry.MediaLoaded(a, naturalW, naturalH)
	}
}

// MediaFailed 미디어 로드 실패 보고
func (s *Session) MediaFailed(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.store.Get(id); ok {
		s.geometry.MediaFailed(a)
	}
}

// MoveAsset 에셋 하나를 월드 좌표로 한 번에 이동
// 포인터 제스처와 같은 선택 -> 드래그 -> 확정 경로를 탄다
func (s *Session) MoveAsset(id int64, x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.store.Get(id)
	if !ok {
		return ErrUnknownAsset
	}
	cam := s.engine.Camera()
	vp := s.engine.Viewport()
	from := cam.WorldToScreen(canvas.Point{X: a.PosX, Y: a.PosY}).Add(vp.Origin)
	to := cam.WorldToScreen(canvas.Point{X: x, Y: y}).Add(vp.Origin)

	s.engine.PointerDown(canvas.PointerEvent{Client: from}, id)
	s.engine.PointerMove(canvas.PointerEvent{Client: to})
	s.engine.PointerUp(canvas.PointerEvent{Client: to})
	return nil
}

// =============================================================================
// 조회
// =============================================================================

func (s *Session) State() realtime.State {
	return s.transport.State()
}

// Banner 연결 안내 문구. 실시간이면 ""
func (s *Session) Banner() string {
	if s.transport.State().Degraded() {
		return BannerLiveSyncUnavailable
	}
	return ""
}

func (s *Session) Desktop() model.Desktop {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desktop
}

func (s *Session) Camera() canvas.Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Camera()
}

// Assets 그리는 순서의 에셋 복사본
func (s *Session) Assets() []model.DesktopAsset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot()
}

func (s *Session) Asset(id int64) (model.DesktopAsset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.store.Get(id)
	if !ok {
		return model.DesktopAsset{}, false
	}
	return *a, true
}

// RenderItem 그릴 에셋 + 계산된 사각형
type RenderItem struct {
	Asset     model.DesktopAsset
	Rect      canvas.Rect
	Resolved  bool
	Selected  bool
	Selectors []presence.RemoteSelector
}

// Visible 컬링된 렌더 목록
func (s *Session) Visible() []RenderItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	assets := s.engine.VisibleAssets()
	out := make([]RenderItem, 0, len(assets))
	for _, a := range assets {
		_, resolved := s.geometry.Resolve(a)
		out = append(out, RenderItem{
			Asset:     *a,
			Rect:      s.geometry.Geometry(a),
			Resolved:  resolved,
			Selected:  s.engine.IsSelected(a.ID),
			Selectors: s.tracker.Selectors(a.ID),
		})
	}
	return out
}

func (s *Session) Selected() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Selected()
}

func (s *Session) Marquee() (canvas.Rect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Marquee()
}

func (s *Session) Menu() *canvas.ContextMenu {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m := s.engine.Menu(); m != nil {
		cp := *m
		return &cp
	}
	return nil
}

func (s *Session) Users() []presence.ConnectedUser {
	return s.tracker.Users()
}

func (s *Session) Cursors() []presence.RemoteCursor {
	return s.tracker.Cursors()
}
