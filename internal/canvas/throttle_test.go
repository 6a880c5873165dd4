package canvas

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

func TestThrottle(t *testing.T) {
	mock := clock.NewMock()
	th := NewThrottle(mock, 40*time.Millisecond)

	assert.True(t, th.Allow())
	assert.False(t, th.Allow())

	mock.Add(40 * time.Millisecond)
	assert.True(t, th.Allow())

	th.Reset()
	assert.True(t, th.Allow())
}

func TestThrottleBurst(t *testing.T) {
	mock := clock.NewMock()
	th := NewThrottle(mock, 40*time.Millisecond)

	allowed := 0
	for i := 0; i < 1000; i++ {
		if th.Allow() {
			allowed++
		}
		mock.Add(30 * time.Microsecond)
	}
	assert.Equal(t, 1, allowed)
}
