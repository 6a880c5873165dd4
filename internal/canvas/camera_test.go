package canvas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func TestScreenToWorldRoundTrip(t *testing.T) {
	vp := Viewport{Origin: Point{X: 40, Y: 60}, Size: Size{W: 800, H: 600}}
	cam := Camera{X: -120, Y: 35, Zoom: 1.7}

	client := Point{X: 300, Y: 250}
	world := cam.ScreenToWorld(vp, client)
	back := cam.WorldToScreen(world)

	assert.InDelta(t, vp.Local(client).X, back.X, eps)
	assert.InDelta(t, vp.Local(client).Y, back.Y, eps)
}

func TestZoomAtKeepsAnchor(t *testing.T) {
	vp := Viewport{Size: Size{W: 1000, H: 800}}
	anchors := []Point{{X: 0, Y: 0}, {X: 500, Y: 400}, {X: 913, Y: 17}}
	factors := []float64{1.2, 1 / 1.2, 3, 0.05, 40}

	for _, at := range anchors {
		for _, f := range factors {
			cam := Camera{X: 33, Y: -71, Zoom: 0.8}
			before := cam.ScreenToWorld(vp, at)
			after := cam.ZoomAt(at, f).ScreenToWorld(vp, at)
			assert.InDelta(t, before.X, after.X, 1e-6, "anchor %v factor %v", at, f)
			assert.InDelta(t, before.Y, after.Y, 1e-6, "anchor %v factor %v", at, f)
		}
	}
}

func TestZoomAlwaysClamped(t *testing.T) {
	cam := DefaultCamera()
	at := Point{X: 100, Y: 100}

	for i := 0; i < 200; i++ {
		cam = cam.WheelZoom(at, -500, 0.001)
		require.LessOrEqual(t, cam.Zoom, MaxZoom)
	}
	assert.Equal(t, MaxZoom, cam.Zoom)

	for i := 0; i < 200; i++ {
		cam = cam.WheelZoom(at, 500, 0.001)
		require.GreaterOrEqual(t, cam.Zoom, MinZoom)
	}
	assert.Equal(t, MinZoom, cam.Zoom)

	assert.Equal(t, MaxZoom, cam.ZoomAt(at, math.Inf(1)).Zoom)
	assert.Equal(t, MinZoom, cam.ZoomAt(at, 0).Zoom)
}

func TestWheelFactorDirection(t *testing.T) {
	assert.Greater(t, WheelFactor(-100, 0.001), 1.0, "scroll up zooms in")
	assert.Less(t, WheelFactor(100, 0.001), 1.0, "scroll down zooms out")
	assert.Equal(t, 1.0, WheelFactor(0, 0.001))
}

func TestToolbarZoom(t *testing.T) {
	vp := Viewport{Size: Size{W: 800, H: 600}}
	cam := DefaultCamera()

	in := cam.ZoomIn(vp)
	assert.InDelta(t, 1.2, in.Zoom, eps)
	assert.Equal(t, 120, in.ZoomPercent())

	centre := cam.ScreenToWorld(vp, vp.Center())
	after := in.ScreenToWorld(vp, vp.Center())
	assert.InDelta(t, centre.X, after.X, eps)
	assert.InDelta(t, centre.Y, after.Y, eps)

	assert.InDelta(t, 1.0, in.ZoomOut(vp).Zoom, eps)
	assert.InDelta(t, 1.0, in.ZoomIn(vp).ZoomIn(vp).ResetZoom(vp).Zoom, eps)
}

func TestFitToContentEmptyResets(t *testing.T) {
	assert.Equal(t, Camera{X: 0, Y: 0, Zoom: 1}, FitToContent(nil, Size{W: 800, H: 600}, 100))
}

func TestFitToContentCentresBoundingBox(t *testing.T) {
	size := Size{W: 1000, H: 500}
	rects := []Rect{{X: 0, Y: 0, W: 100, H: 100}, {X: 700, Y: 200, W: 100, H: 100}}

	cam := FitToContent(rects, size, 100)

	// 패딩 포함 1000x500 -> zoom 1, 박스 중심이 뷰포트 중심
	assert.InDelta(t, 1.0, cam.Zoom, eps)
	centre := cam.WorldToScreen(Point{X: 400, Y: 150})
	assert.InDelta(t, 500, centre.X, eps)
	assert.InDelta(t, 250, centre.Y, eps)
}

func TestFitToContentClampsZoom(t *testing.T) {
	tiny := FitToContent([]Rect{{X: 0, Y: 0, W: 1, H: 1}}, Size{W: 1000, H: 1000}, 0.01)
	assert.Equal(t, MaxZoom, tiny.Zoom)

	huge := FitToContent([]Rect{{X: 0, Y: 0, W: 1e6, H: 1e6}}, Size{W: 100, H: 100}, 100)
	assert.Equal(t, MinZoom, huge.Zoom)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 1.0, Camera{}.Normalize().Zoom)
	assert.Equal(t, MaxZoom, Camera{Zoom: 12}.Normalize().Zoom)
	assert.Equal(t, 1.0, Camera{Zoom: math.NaN()}.Normalize().Zoom)
}

func TestRectHelpers(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 100, H: 100}
	assert.True(t, a.Intersects(Rect{X: 100, Y: 100, W: 5, H: 5}), "touching corner")
	assert.False(t, a.Intersects(Rect{X: 100.5, Y: 0, W: 5, H: 5}))
	assert.Equal(t, Rect{X: 10, Y: 20, W: 30, H: 40}, RectFromCorners(Point{X: 40, Y: 60}, Point{X: 10, Y: 20}))

	box, ok := BoundingBox([]Rect{a, {X: -50, Y: 20, W: 10, H: 200}})
	require.True(t, ok)
	assert.Equal(t, Rect{X: -50, Y: 0, W: 150, H: 220}, box)
}
