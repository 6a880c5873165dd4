package canvas

import (
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultBroadcastInterval 포인터 브로드캐스트 간격 (~25Hz)
const DefaultBroadcastInterval = 40 * time.Millisecond

// Throttle interval 당 한 번만 통과. 타이머 없이 마지막 통과 시각과 비교하며
// 늦게 보내는 일은 없다
type Throttle struct {
	clock    clock.Clock
	interval time.Duration
	last     time.Time
	used     bool
}

// NewThrottle 생성자
func NewThrottle(c clock.Clock, interval time.Duration) *Throttle {
	return &Throttle{clock: c, interval: interval}
}

// Allow 지금 보내도 되는지 확인하고, 되면 시각 기록
func (t *Throttle) Allow() bool {
	now := t.clock.Now()
	if t.used && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	t.used = true
	return true
}

// Reset 다음 호출을 바로 허용
func (t *Throttle) Reset() {
	t.used = false
}
