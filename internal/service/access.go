package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"desktop-realtime/internal/model"
)

// Access 데스크톱에 대한 사용자 권한 수준
type Access int

const (
	AccessNone Access = iota
	AccessView
	AccessEdit
	AccessOwner
)

// String 권한을 문자열로 반환
func (a Access) String() string {
	switch a {
	case AccessView:
		return "view"
	case AccessEdit:
		return "edit"
	case AccessOwner:
		return "owner"
	default:
		return "none"
	}
}

// CanView 읽기 가능 여부
func (a Access) CanView() bool { return a >= AccessView }

// CanEdit 에셋 이동/삭제/추가 가능 여부
func (a Access) CanEdit() bool { return a >= AccessEdit }

// accessFromShare 공유 권한을 접근 수준으로 변환
func accessFromShare(p model.SharePermission) Access {
	if p.CanEdit() {
		return AccessEdit
	}
	if p == model.SharePermissionView {
		return AccessView
	}
	return AccessNone
}

// Access 소유자 > 공유(EDIT/VIEW) 순서로 판단
func (s *DesktopService) Access(ctx context.Context, desktopID, userID int64) (Access, error) {
	var desktop model.Desktop
	err := s.db.WithContext(ctx).Select("id", "owner_id").First(&desktop, desktopID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return AccessNone, ErrDesktopNotFound
	}
	if err != nil {
		return AccessNone, err
	}
	if desktop.OwnerID == userID {
		return AccessOwner, nil
	}

	var share model.DesktopShare
	err = s.db.WithContext(ctx).
		Where("desktop_id = ? AND user_id = ?", desktopID, userID).
		First(&share).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return AccessNone, nil
	}
	if err != nil {
		return AccessNone, err
	}
	return accessFromShare(share.Permission), nil
}
