package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"desktop-realtime/internal/model"
)

func TestPatchUpdates(t *testing.T) {
	assert.Empty(t, PatchUpdates(model.AssetPatch{}))
	assert.Equal(t, map[string]any{"pos_x": 4.5, "pos_y": -2.0}, PatchUpdates(model.MovePatch(4.5, -2)))

	w, z := 320.0, 7
	assert.Equal(t, map[string]any{"width": 320.0, "z_index": 7}, PatchUpdates(model.AssetPatch{Width: &w, ZIndex: &z}))
}

func TestValidateNewAsset(t *testing.T) {
	zero := 0.0
	tests := []struct {
		name  string
		asset model.DesktopAsset
		ok    bool
	}{
		{"image with url", model.DesktopAsset{AssetType: model.AssetTypeImage, URL: "https://cdn/x.png"}, true},
		{"text without url", model.DesktopAsset{AssetType: model.AssetTypeText, Content: "hello"}, true},
		{"video without url", model.DesktopAsset{AssetType: model.AssetTypeVideo}, false},
		{"unknown type", model.DesktopAsset{AssetType: "sticker", URL: "x"}, false},
		{"zero width", model.DesktopAsset{AssetType: model.AssetTypeText, Width: &zero}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNewAsset(tt.asset)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidAsset)
			}
		})
	}
}

func TestAccessLevels(t *testing.T) {
	assert.Equal(t, AccessEdit, accessFromShare(model.SharePermissionEdit))
	assert.Equal(t, AccessView, accessFromShare(model.SharePermissionView))
	assert.Equal(t, AccessNone, accessFromShare("ADMIN"))

	assert.True(t, AccessOwner.CanEdit())
	assert.True(t, AccessView.CanView())
	assert.False(t, AccessView.CanEdit())
	assert.False(t, AccessNone.CanView())
	assert.Equal(t, "edit", AccessEdit.String())
}
