package realtime

import "time"

// Backoff 지수 백오프 (Base, 2*Base, 4*Base ... 최대 Max)
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay attempt 번째 재시도 전 대기 시간 (첫 번째는 0)
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	d := b.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}
