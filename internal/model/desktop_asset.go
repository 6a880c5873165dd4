package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// DesktopAsset 데스크톱 위에 놓인 에셋 (이미지/비디오/텍스트)
// PosX/PosY 는 좌상단의 월드 좌표. Width/Height 가 없으면 클라이언트가 미디어 크기로 계산
type DesktopAsset struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	DesktopID int64          `gorm:"not null;index:idx_desktop_asset_z" json:"desktopId"`
	AssetType AssetType      `gorm:"type:varchar(20);not null" json:"assetType"`
	PosX      float64        `gorm:"not null;default:0" json:"posX"`
	PosY      float64        `gorm:"not null;default:0" json:"posY"`
	Width     *float64       `json:"width,omitempty"`
	Height    *float64       `json:"height,omitempty"`
	ZIndex    int            `gorm:"default:0;index:idx_desktop_asset_z" json:"zIndex"`
	URL       string         `gorm:"type:text" json:"url,omitempty"`
	Content   string         `gorm:"type:text" json:"content,omitempty"`
	Metadata  datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedBy int64          `json:"createdBy"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (DesktopAsset) TableName() string {
	return "desktop_assets"
}

// HasDimensions 저장된 크기가 있는지 확인
func (a *DesktopAsset) HasDimensions() bool {
	return a.Width != nil && a.Height != nil && *a.Width > 0 && *a.Height > 0
}

// SourceChatID 에셋을 만든 채팅 ID (metadata.chatId). 없으면 false
func (a *DesktopAsset) SourceChatID() (string, bool) {
	if len(a.Metadata) == 0 {
		return "", false
	}
	var meta struct {
		ChatID json.RawMessage `json:"chatId"`
	}
	if err := json.Unmarshal(a.Metadata, &meta); err != nil || len(meta.ChatID) == 0 {
		return "", false
	}

	// 숫자/문자열 ID 모두 허용
	var s string
	if err := json.Unmarshal(meta.ChatID, &s); err == nil {
		return s, s != ""
	}
	var n json.Number
	if err := json.Unmarshal(meta.ChatID, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// DesktopDetail fetchDetail 응답
type DesktopDetail struct {
	Desktop Desktop        `json:"desktop"`
	Assets  []DesktopAsset `json:"assets"`
	Shares  []DesktopShare `json:"shares"`
}

// AssetMove 배치 이동 항목
type AssetMove struct {
	AssetID int64   `json:"assetId"`
	PosX    float64 `json:"posX"`
	PosY    float64 `json:"posY"`
}

// AssetPatch 에셋 부분 수정 (nil 필드는 변경 없음)
type AssetPatch struct {
	PosX   *float64 `json:"posX,omitempty"`
	PosY   *float64 `json:"posY,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
	ZIndex *int     `json:"zIndex,omitempty"`
}

// MovePatch 위치만 바꾸는 패치
func MovePatch(x, y float64) AssetPatch {
	return AssetPatch{PosX: &x, PosY: &y}
}

// ViewportState 저장되는 카메라 상태
type ViewportState struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}
