package canvas

import "sort"

// Selection 로컬 사용자가 선택한 에셋 ID 집합
type Selection struct {
	ids map[int64]struct{}
}

func NewSelection() *Selection {
	return &Selection{ids: make(map[int64]struct{})}
}

func (s *Selection) Has(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Len() int {
	return len(s.ids)
}

// IDs 오름차순 ID 목록
func (s *Selection) IDs() []int64 {
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Set 선택 교체 후 변경분(추가/해제) 반환
func (s *Selection) Set(ids ...int64) (added, removed []int64) {
	next := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}
	added, removed = diff(s.ids, next)
	s.ids = next
	return added, removed
}

// Clear 전체 해제, 해제된 ID 반환
func (s *Selection) Clear() (removed []int64) {
	_, removed = s.Set()
	return removed
}

// Toggle 선택 반전. 반환값은 선택 여부
func (s *Selection) Toggle(id int64) bool {
	if s.Has(id) {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *Selection) Remove(id int64) bool {
	if !s.Has(id) {
		return false
	}
	delete(s.ids, id)
	return true
}

func diff(prev, next map[int64]struct{}) (added, removed []int64) {
	for id := range next {
		if _, ok := prev[id]; !ok {
			added = append(added, id)
		}
	}
	for id := range prev {
		if _, ok := next[id]; !ok {
			removed = append(removed, id)
		}
	}
	sort.Slice(added, func(i, j int) bool { return added[i] < added[j] })
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return added, removed
}
