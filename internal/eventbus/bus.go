// Package eventbus 프로세스 내 토픽 버스 (명시적 구독/해제)
package eventbus

import (
	"sort"
	"sync"
)

// 데스크톱 세션 토픽
const (
	// 마운트된 데스크톱 refetch 요청. 페이로드: 데스크톱 ID (int64), 0 이면 전체
	TopicRefresh = "desktop.refresh"
	// 연결 상태 변경. 페이로드: desktop.ConnectionChange
	TopicConnection = "desktop.connection"
)

type Handler func(payload any)

// Bus 동기 토픽 버스. 핸들러는 발행자 고루틴에서 구독 순서대로 실행
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]Handler
}

func New() *Bus {
	return &Bus{subs: make(map[string]map[uint64]Handler)}
}

// Subscribe 핸들러 등록. 반환된 함수로 해제 (여러 번 호출해도 안전)
func (b *Bus) Subscribe(topic string, fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]Handler)
	}
	b.subs[topic][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[topic], id)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
		})
	}
}

// Publish 현재 구독자 전원에게 전달
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	ids := make([]uint64, 0, len(b.subs[topic]))
	for id := range b.subs[topic] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]Handler, len(ids))
	for i, id := range ids {
		handlers[i] = b.subs[topic][id]
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(payload)
	}
}

func (b *Bus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
