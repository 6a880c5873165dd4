package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"desktop-realtime/internal/model"
)

var (
	ErrDesktopNotFound = errors.New("desktop not found")
	ErrAssetNotFound   = errors.New("asset not found")
	ErrInvalidAsset    = errors.New("invalid asset")
	ErrInvalidViewport = errors.New("invalid viewport")
)

// DesktopService 데스크톱/에셋 CRUD 비즈니스 로직
type DesktopService struct {
	db *gorm.DB
}

// NewDesktopService DesktopService 생성
func NewDesktopService(db *gorm.DB) *DesktopService {
	return &DesktopService{db: db}
}

// Detail 데스크톱 + 에셋(z-index 순) + 공유 목록
func (s *DesktopService) Detail(ctx context.Context, desktopID int64) (*model.DesktopDetail, error) {
	db := s.db.WithContext(ctx)

	var detail model.DesktopDetail
	if err := db.First(&detail.Desktop, desktopID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDesktopNotFound
		}
		return nil, err
	}

	if err := db.Where("desktop_id = ?", desktopID).
		Order("z_index ASC, id ASC").
		Find(&detail.Assets).Error; err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}

	if err := db.Preload("User").
		Where("desktop_id = ?", desktopID).
		Order("id ASC").
		Find(&detail.Shares).Error; err != nil {
		return nil, fmt.Errorf("load shares: %w", err)
	}

	return &detail, nil
}

// AddAsset 에셋 추가. zIndex 가 없으면 맨 위로
func (s *DesktopService) AddAsset(ctx context.Context, desktopID, userID int64, asset model.DesktopAsset) (*model.DesktopAsset, error) {
	if err := ValidateNewAsset(asset); err != nil {
		return nil, err
	}
	asset.ID = 0
	asset.DesktopID = desktopID
	asset.CreatedBy = userID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if asset.ZIndex == 0 {
			var top *int
			if err := tx.Model(&model.DesktopAsset{}).
				Where("desktop_id = ?", desktopID).
				Select("MAX(z_index)").
				Scan(&top).Error; err != nil {
				return err
			}
			if top != nil {
				asset.ZIndex = *top + 1
			}
		}
		return tx.Create(&asset).Error
	})
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// UpdateAsset 부분 수정
func (s *DesktopService) UpdateAsset(ctx context.Context, desktopID, assetID int64, patch model.AssetPatch) (*model.DesktopAsset, error) {
	updates := PatchUpdates(patch)
	db := s.db.WithContext(ctx)

	if len(updates) > 0 {
		res := db.Model(&model.DesktopAsset{}).
			Where("id = ? AND desktop_id = ?", assetID, desktopID).
			Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrAssetNotFound
		}
	}

	var asset model.DesktopAsset
	if err := db.Where("id = ? AND desktop_id = ?", assetID, desktopID).First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	return &asset, nil
}

// RemoveAsset 에셋 삭제. 이미 없으면 false
func (s *DesktopService) RemoveAsset(ctx context.Context, desktopID, assetID int64) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("id = ? AND desktop_id = ?", assetID, desktopID).
		Delete(&model.DesktopAsset{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// BatchMove 여러 에셋 위치를 한 트랜잭션으로 갱신
// 다른 데스크톱의 에셋 ID 는 조용히 무시
func (s *DesktopService) BatchMove(ctx context.Context, desktopID int64, moves []model.AssetMove) error {
	if len(moves) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range moves {
			if err := tx.Model(&model.DesktopAsset{}).
				Where("id = ? AND desktop_id = ?", m.AssetID, desktopID).
				Updates(map[string]any{"pos_x": m.PosX, "pos_y": m.PosY}).Error; err != nil {
				return fmt.Errorf("move asset %d: %w", m.AssetID, err)
			}
		}
		return nil
	})
}

// BatchRemove 여러 에셋 삭제. 삭제된 수 반환
func (s *DesktopService) BatchRemove(ctx context.Context, desktopID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("desktop_id = ? AND id IN ?", desktopID, ids).
		Delete(&model.DesktopAsset{})
	return res.RowsAffected, res.Error
}

// SaveViewport 마지막 카메라 상태 저장 (last write wins)
func (s *DesktopService) SaveViewport(ctx context.Context, desktopID int64, v model.ViewportState) error {
	if v.Zoom <= 0 {
		return ErrInvalidViewport
	}
	res := s.db.WithContext(ctx).
		Model(&model.Desktop{}).
		Where("id = ?", desktopID).
		Updates(map[string]any{"viewport_x": v.X, "viewport_y": v.Y, "viewport_zoom": v.Zoom})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDesktopNotFound
	}
	return nil
}

// PatchUpdates nil 이 아닌 필드만 컬럼 맵으로 변환
func PatchUpdates(p model.AssetPatch) map[string]any {
	updates := make(map[string]any)
	if p.PosX != nil {
		updates["pos_x"] = *p.PosX
	}
	if p.PosY != nil {
		updates["pos_y"] = *p.PosY
	}
	if p.Width != nil {
		updates["width"] = *p.Width
	}
	if p.Height != nil {
		updates["height"] = *p.Height
	}
	if p.ZIndex != nil {
		updates["z_index"] = *p.ZIndex
	}
	return updates
}

// ValidateNewAsset 타입별 필수 필드 확인
func ValidateNewAsset(a model.DesktopAsset) error {
	if !a.AssetType.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidAsset, a.AssetType)
	}
	if a.AssetType.HasMedia() && a.URL == "" {
		return fmt.Errorf("%w: %s asset needs url", ErrInvalidAsset, a.AssetType)
	}
	if (a.Width != nil && *a.Width <= 0) || (a.Height != nil && *a.Height <= 0) {
		return fmt.Errorf("%w: non-positive size", ErrInvalidAsset)
	}
	return nil
}
