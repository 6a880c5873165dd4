package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"desktop-realtime/internal/model"
)

func TestStoreRemoveIsIdempotent(t *testing.T) {
	s := NewStore()
	s.Replace([]model.DesktopAsset{box(1, 0, 0, 10, 10)})

	assert.True(t, s.Remove(1))
	assert.False(t, s.Remove(1))
	assert.Zero(t, s.Len())
}

func TestStoreMoveUnknownAsset(t *testing.T) {
	s := NewStore()
	s.Replace([]model.DesktopAsset{box(1, 0, 0, 10, 10)})

	assert.False(t, s.Move(9, 5, 5))
	assert.True(t, s.Move(1, 5, 6))
	a, ok := s.Get(1)
	assert.True(t, ok)
	assert.Equal(t, 5.0, a.PosX)
	assert.Equal(t, 6.0, a.PosY)
}
