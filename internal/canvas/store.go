package canvas

import (
	"sort"

	"desktop-realtime/internal/model"
)

// Store 마운트된 데스크톱의 에셋 컬렉션
// 로컬 입력과 원격 이벤트가 같은 메서드를 거친다. 동시 접근은 소유자가 직렬화
type Store struct {
	assets map[int64]*model.DesktopAsset
}

// NewStore 생성자
func NewStore() *Store {
	return &Store{assets: make(map[int64]*model.DesktopAsset)}
}

// Replace 전체 교체 (refetch 후)
func (s *Store) Replace(assets []model.DesktopAsset) {
	s.assets = make(map[int64]*model.DesktopAsset, len(assets))
	for i := range assets {
		a := assets[i]
		s.assets[a.ID] = &a
	}
}

func (s *Store) Upsert(a model.DesktopAsset) {
	s.assets[a.ID] = &a
}

func (s *Store) Get(id int64) (*model.DesktopAsset, bool) {
	a, ok := s.assets[id]
	return a, ok
}

// Move 위치 변경. 모르는 ID 는 무시
func (s *Store) Move(id int64, x, y float64) bool {
	a, ok := s.assets[id]
	if !ok {
		return false
	}
	a.PosX = x
	a.PosY = y
	return true
}

// Remove 에셋 삭제. 이미 없으면 false (멱등)
func (s *Store) Remove(id int64) bool {
	if _, ok := s.assets[id]; !ok {
		return false
	}
	delete(s.assets, id)
	return true
}

func (s *Store) Len() int {
	return len(s.assets)
}

// All 그리는 순서(zIndex, id)로 정렬된 에셋
func (s *Store) All() []*model.DesktopAsset {
	out := make([]*model.DesktopAsset, 0, len(s.assets))
	for _, a := range s.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ZIndex != out[j].ZIndex {
			return out[i].ZIndex < out[j].ZIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Snapshot All 의 값 복사본
func (s *Store) Snapshot() []model.DesktopAsset {
	all := s.All()
	out := make([]model.DesktopAsset, len(all))
	for i, a := range all {
		out[i] = *a
	}
	return out
}
