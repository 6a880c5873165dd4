package model

import (
	"time"
)

// User 사용자
type User struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FirstName  string    `gorm:"type:varchar(100);not null" json:"firstName"`
	ProfileImg *string   `gorm:"type:text" json:"profileImg,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`

	// Relations
	Desktops []Desktop      `gorm:"foreignKey:OwnerID" json:"desktops,omitempty"`
	Shares   []DesktopShare `gorm:"foreignKey:UserID" json:"shares,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// Desktop 무한 캔버스 (데스크톱)
// Viewport* 컬럼은 마지막으로 저장된 카메라 상태
type Desktop struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID      int64     `gorm:"not null;index" json:"ownerId"`
	Title        string    `gorm:"type:varchar(200);not null" json:"title"`
	ViewportX    float64   `gorm:"default:0" json:"viewportX"`
	ViewportY    float64   `gorm:"default:0" json:"viewportY"`
	ViewportZoom float64   `gorm:"default:1" json:"viewportZoom"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	// Relations
	Owner  User           `gorm:"foreignKey:OwnerID" json:"-"`
	Assets []DesktopAsset `gorm:"foreignKey:DesktopID" json:"-"`
	Shares []DesktopShare `gorm:"foreignKey:DesktopID" json:"-"`
}

func (Desktop) TableName() string {
	return "desktops"
}

// DesktopShare 데스크톱 공유 (소유자 외 참여자)
type DesktopShare struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	DesktopID  int64           `gorm:"not null;uniqueIndex:idx_desktop_share_user" json:"desktopId"`
	UserID     int64           `gorm:"not null;uniqueIndex:idx_desktop_share_user" json:"userId"`
	Permission SharePermission `gorm:"type:varchar(10);not null;default:'VIEW'" json:"permission"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"createdAt"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (DesktopShare) TableName() string {
	return "desktop_shares"
}
