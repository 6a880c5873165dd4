package model

// AssetType 데스크톱 에셋 타입
type AssetType string

const (
	AssetTypeImage AssetType = "image"
	AssetTypeVideo AssetType = "video"
	AssetTypeText  AssetType = "text"
)

func (a AssetType) String() string {
	return string(a)
}

// Valid 지원하는 에셋 타입인지 확인
func (a AssetType) Valid() bool {
	switch a {
	case AssetTypeImage, AssetTypeVideo, AssetTypeText:
		return true
	}
	return false
}

// HasMedia 이미지/비디오처럼 로드해야 크기를 알 수 있는 타입
func (a AssetType) HasMedia() bool {
	return a == AssetTypeImage || a == AssetTypeVideo
}

// SharePermission 공유 권한
type SharePermission string

const (
	SharePermissionView SharePermission = "VIEW"
	SharePermissionEdit SharePermission = "EDIT"
)

func (p SharePermission) String() string {
	return string(p)
}

// CanEdit 편집 가능 여부
func (p SharePermission) CanEdit() bool {
	return p == SharePermissionEdit
}
