package viewport

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"desktop-realtime/internal/model"
)

// DefaultDelay 마지막 카메라 변경 후 저장까지 대기
const DefaultDelay = 2 * time.Second

type SaveFunc func(ctx context.Context, v model.ViewportState) error

// Saver 뷰포트 저장 디바운스. Touch 마다 타이머 재설정, Close 에서 즉시 저장
type Saver struct {
	clock clock.Clock
	delay time.Duration
	save  SaveFunc

	mu      sync.Mutex
	timer   *clock.Timer
	gen     uint64
	pending *model.ViewportState
	closed  bool
}

// NewSaver 생성자
func NewSaver(c clock.Clock, delay time.Duration, save SaveFunc) *Saver {
	if c == nil {
		c = clock.New()
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Saver{clock: c, delay: delay, save: save}
}

// Touch 최신 뷰포트 기록 후 타이머 재시작
func (s *Saver) Touch(v model.ViewportState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.pending = &v
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
	}
	gen := s.gen
	s.timer = s.clock.AfterFunc(s.delay, func() { s.fire(gen) })
}

func (s *Saver) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Close 대기 중인 저장을 바로 실행. 이후 Touch 는 무시
func (s *Saver) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	v := s.pending
	s.pending = nil
	s.mu.Unlock()

	if v != nil {
		s.flush(*v)
	}
}

func (s *Saver) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.pending == nil {
		s.mu.Unlock()
		return
	}
	v := *s.pending
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()

	s.flush(v)
}

func (s *Saver) flush(v model.ViewportState) {
	if err := s.save(context.Background(), v); err != nil {
		log.Printf("[Viewport] save failed: %v", err)
	}
}
