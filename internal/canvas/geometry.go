package canvas

import (
	"desktop-realtime/internal/model"
)

// DefaultAssetWidth 크기 정보가 없는 미디어를 맞출 월드 너비
const DefaultAssetWidth = 300.0

// textAspect 크기 없는 텍스트 블록의 높이/너비 비율
const textAspect = 2.0 / 3.0

// GeometryCache 에셋별 렌더 사각형 계산
//
// 저장된 width/height 가 있으면 그대로 쓰고, 없으면 로드된 미디어의 원본
// 크기를 기본 너비로 맞춰 에셋 ID 별로 한 번만 캐시한다. 캐시된 값은 세션
// 동안 다시 계산하지 않는다 (나중에 저장 크기가 생겨도 유지)
type GeometryCache struct {
	defaultWidth float64
	sizes        map[int64]Size
}

// NewGeometryCache 생성자. width <= 0 이면 DefaultAssetWidth
func NewGeometryCache(defaultWidth float64) *GeometryCache {
	if defaultWidth <= 0 {
		defaultWidth = DefaultAssetWidth
	}
	return &GeometryCache{
		defaultWidth: defaultWidth,
		sizes:        make(map[int64]Size),
	}
}

// Placeholder 아직 계산 전이거나 로드 실패한 에셋 크기
func (g *GeometryCache) Placeholder() Size {
	return Size{W: g.defaultWidth, H: g.defaultWidth}
}

// MediaLoaded 미디어 원본 크기 기록. 캐시에 넣었으면 true
// 저장 크기가 있거나 이미 캐시된 에셋은 무시
func (g *GeometryCache) MediaLoaded(a *model.DesktopAsset, naturalW, naturalH float64) bool {
	if a.HasDimensions() {
		return false
	}
	if _, ok := g.sizes[a.ID]; ok {
		return false
	}
	if naturalW <= 0 || naturalH <= 0 {
		g.sizes[a.ID] = g.Placeholder()
		return true
	}
	g.sizes[a.ID] = Size{W: g.defaultWidth, H: g.defaultWidth * naturalH / naturalW}
	return true
}

// MediaFailed 로드 실패. 기본 크기로 placeholder 렌더
func (g *GeometryCache) MediaFailed(a *model.DesktopAsset) {
	if a.HasDimensions() {
		return
	}
	if _, ok := g.sizes[a.ID]; ok {
		return
	}
	g.sizes[a.ID] = g.Placeholder()
}

// Forget 삭제된 에셋 캐시 제거
func (g *GeometryCache) Forget(id int64) {
	delete(g.sizes, id)
}

// Resolve 에셋의 월드 사각형. 캐시가 저장 크기보다 우선
// 크기 없는 미디어가 아직 로딩 중이면 ok=false
func (g *GeometryCache) Resolve(a *model.DesktopAsset) (Rect, bool) {
	if size, ok := g.sizes[a.ID]; ok {
		return Rect{X: a.PosX, Y: a.PosY, W: size.W, H: size.H}, true
	}
	if a.HasDimensions() {
		return Rect{X: a.PosX, Y: a.PosY, W: *a.Width, H: *a.Height}, true
	}
	if !a.AssetType.HasMedia() {
		return Rect{X: a.PosX, Y: a.PosY, W: g.defaultWidth, H: g.defaultWidth * textAspect}, true
	}
	return Rect{}, false
}

// Geometry 미해결 에셋은 placeholder 크기로 대체한 Resolve
// 히트 테스트/컬링/마퀴 선택에서 사용
func (g *GeometryCache) Geometry(a *model.DesktopAsset) Rect {
	if r, ok := g.Resolve(a); ok {
		return r
	}
	p := g.Placeholder()
	return Rect{X: a.PosX, Y: a.PosY, W: p.W, H: p.H}
}
