package canvas

import "math"

// 줌 범위와 툴바 배율
const (
	MinZoom  = 0.1
	MaxZoom  = 5.0
	ZoomStep = 1.2
)

// Camera 월드 -> 화면 변환 (screen = world*Zoom + (X, Y))
type Camera struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// DefaultCamera 기본 카메라 {0, 0, 1}
func DefaultCamera() Camera {
	return Camera{X: 0, Y: 0, Zoom: 1}
}

// Viewport 캔버스 컨테이너. Origin 은 클라이언트 좌표 기준 좌상단
type Viewport struct {
	Origin Point
	Size   Size
}

// Local 클라이언트 좌표 -> 컨테이너 기준 화면 좌표
func (v Viewport) Local(client Point) Point {
	return client.Sub(v.Origin)
}

func (v Viewport) Center() Point {
	return Point{X: v.Size.W / 2, Y: v.Size.H / 2}
}

// ClampZoom 줌을 [MinZoom, MaxZoom] 로 제한 (NaN 은 1)
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	return math.Min(MaxZoom, math.Max(MinZoom, z))
}

// Normalize 저장된 값의 0/범위 밖 줌 보정
func (c Camera) Normalize() Camera {
	if c.Zoom == 0 {
		c.Zoom = 1
	}
	c.Zoom = ClampZoom(c.Zoom)
	return c
}

// ScreenToWorld 클라이언트 좌표 -> 월드 좌표
func (c Camera) ScreenToWorld(vp Viewport, client Point) Point {
	local := vp.Local(client)
	return Point{
		X: (local.X - c.X) / c.Zoom,
		Y: (local.Y - c.Y) / c.Zoom,
	}
}

// WorldToScreen 월드 좌표 -> 컨테이너 기준 화면 좌표
func (c Camera) WorldToScreen(world Point) Point {
	return Point{
		X: world.X*c.Zoom + c.X,
		Y: world.Y*c.Zoom + c.Y,
	}
}

// ZoomAt at 아래의 월드 좌표를 고정한 채 factor 배 줌
func (c Camera) ZoomAt(at Point, factor float64) Camera {
	newZoom := ClampZoom(c.Zoom * factor)
	ratio := newZoom / c.Zoom
	return Camera{
		X:    at.X - (at.X-c.X)*ratio,
		Y:    at.Y - (at.Y-c.Y)*ratio,
		Zoom: newZoom,
	}
}

// WheelFactor 휠 deltaY -> 줌 배율. 아래로 스크롤(양수)하면 축소
func WheelFactor(deltaY, sensitivity float64) float64 {
	return math.Exp(-deltaY * sensitivity)
}

// WheelZoom 커서 위치 기준 휠 줌
func (c Camera) WheelZoom(at Point, deltaY, sensitivity float64) Camera {
	return c.ZoomAt(at, WheelFactor(deltaY, sensitivity))
}

// ZoomIn 화면 중앙 기준 확대
func (c Camera) ZoomIn(vp Viewport) Camera {
	return c.ZoomAt(vp.Center(), ZoomStep)
}

// ZoomOut 화면 중앙 기준 축소
func (c Camera) ZoomOut(vp Viewport) Camera {
	return c.ZoomAt(vp.Center(), 1/ZoomStep)
}

// ResetZoom 화면 중앙 기준 100% 로
func (c Camera) ResetZoom(vp Viewport) Camera {
	return c.ZoomAt(vp.Center(), 1/c.Zoom)
}

// ZoomPercent 툴바 표시용 퍼센트
func (c Camera) ZoomPercent() int {
	return int(math.Round(c.Zoom * 100))
}

func (c Camera) Pan(delta Point) Camera {
	c.X += delta.X
	c.Y += delta.Y
	return c
}

// VisibleWorldRect 화면에 보이는 월드 영역
func (c Camera) VisibleWorldRect(size Size) Rect {
	return Rect{
		X: -c.X / c.Zoom,
		Y: -c.Y / c.Zoom,
		W: size.W / c.Zoom,
		H: size.H / c.Zoom,
	}
}

// FitToContent 에셋 전체가 보이도록 카메라 계산 (padding 은 월드 단위 여백)
// 에셋이 없으면 기본 카메라
func FitToContent(rects []Rect, size Size, padding float64) Camera {
	box, ok := BoundingBox(rects)
	if !ok {
		return DefaultCamera()
	}
	box = box.Expand(padding)
	if box.W <= 0 || box.H <= 0 || size.W <= 0 || size.H <= 0 {
		return DefaultCamera()
	}

	zoom := math.Min(MaxZoom, math.Max(MinZoom, math.Min(size.W/box.W, size.H/box.H)))
	center := box.Center()
	return Camera{
		X:    size.W/2 - center.X*zoom,
		Y:    size.H/2 - center.Y*zoom,
		Zoom: zoom,
	}
}
