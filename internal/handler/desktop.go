package handler

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"desktop-realtime/internal/auth"
	"desktop-realtime/internal/middleware"
	"desktop-realtime/internal/model"
	"desktop-realtime/internal/realtime"
	"desktop-realtime/internal/service"
)

// maxBatchSize 배치 요청 한 번에 허용하는 에셋 수
const maxBatchSize = 500

// DesktopStore 데스크톱/에셋 저장소 (service.DesktopService)
type DesktopStore interface {
	Detail(ctx context.Context, desktopID int64) (*model.DesktopDetail, error)
	AddAsset(ctx context.Context, desktopID, userID int64, asset model.DesktopAsset) (*model.DesktopAsset, error)
	UpdateAsset(ctx context.Context, desktopID, assetID int64, patch model.AssetPatch) (*model.DesktopAsset, error)
	RemoveAsset(ctx context.Context, desktopID, assetID int64) (bool, error)
	BatchMove(ctx context.Context, desktopID int64, moves []model.AssetMove) error
	BatchRemove(ctx context.Context, desktopID int64, ids []int64) (int64, error)
	SaveViewport(ctx context.Context, desktopID int64, v model.ViewportState) error
}

// DetailCache 데스크톱 상세 캐시 (cache.RedisClient)
type DetailCache interface {
	GetDetail(ctx context.Context, desktopID int64) (*model.DesktopDetail, bool, error)
	SetDetail(ctx context.Context, detail *model.DesktopDetail) error
	InvalidateDetail(ctx context.Context, desktopID int64)
}

// PresenceLister 접속 세션 조회 (DesktopHub)
type PresenceLister interface {
	Sessions(ctx context.Context, desktopID int64) []realtime.Sender
}

// DesktopHandler 데스크톱 REST 핸들러
type DesktopHandler struct {
	store    DesktopStore
	cache    DetailCache // nil 이면 캐시 없이 동작
	presence PresenceLister
}

// NewDesktopHandler DesktopHandler 생성
func NewDesktopHandler(store DesktopStore, cache DetailCache, presence PresenceLister) *DesktopHandler {
	return &DesktopHandler{store: store, cache: cache, presence: presence}
}

// BatchMoveRequest 배치 이동 요청
type BatchMoveRequest struct {
	Moves []model.AssetMove `json:"moves"`
}

// BatchRemoveRequest 배치 삭제 요청
type BatchRemoveRequest struct {
	AssetIDs []int64 `json:"assetIds"`
}

// GetDesktop 데스크톱 상세 조회 (GET /api/desktops/:id)
func (h *DesktopHandler) GetDesktop(c *fiber.Ctx) error {
	desktopID := c.Locals("desktopID").(int64)
	ctx := c.UserContext()

	if h.cache != nil {
		if detail, ok, err := h.cache.GetDetail(ctx, desktopID); err == nil && ok {
			return c.JSON(detail)
		} else if err != nil {
			log.Printf("[Desktop %d] cache read failed: %v", desktopID, err)
		}
	}

	detail, err := h.store.Detail(ctx, desktopID)
	if err != nil {
		return storeError(c, err)
	}

	if h.cache != nil {
		if err := h.cache.SetDetail(ctx, detail); err != nil {
			log.Printf("[Desktop %d] cache write failed: %v", desktopID, err)
		}
	}
	return c.JSON(detail)
}

// AddAsset 에셋 추가 (POST /api/desktops/:id/assets)
func (h *DesktopHandler) AddAsset(c *fiber.Ctx) error {
	desktopID := c.Locals("desktopID").(int64)
	claims, err := auth.GetClaimsFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var asset model.DesktopAsset
	if err := c.BodyParser(&asset); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	created, err := h.store.AddAsset(c.UserContext(), desktopID, claims.UserID, asset)
	if err != nil {
		return storeError(c, err)
	}
	h.invalidate(c.UserContext(), desktopID)

	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateAsset 에셋 부분 수정 (PATCH /api/desktops/:id/assets/:assetId)
func (h *DesktopHandler) UpdateAsset(c *fiber.Ctx) error {
	desktopID := c.Locals("desktopID").(int64)
	assetID, err := assetIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid asset ID"})
	}

	var patch model.AssetPatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if (patch.Width != nil && *patch.Width <= 0) || (patch.Height != nil && *patch.Height <= 0) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "size must be positive"})
	}

	asset, err := h.store.UpdateAsset(c.UserContext(), desktopID, assetID, patch)
	if err != nil {
		return storeError(c, err)
	}
	h.invalidate(c.UserContext(), desktopID)

	return c.JSON(asset)
}

// RemoveAsset 에셋 삭제 (DELETE /api/desktops/:id/assets/:assetId)
// 이미 삭제된 에셋도 204 (동시 삭제 허용)
func (h *DesktopHandler) RemoveAsset(c *fiber.Ctx) error {
	desktopID := c.Locals("desktopID").(int64)
	assetID, err := assetIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid asset ID"})
	}

	removed, err := h.store.RemoveAsset(c.UserContext(), desktopID, assetID)
	if err != nil {
		return storeError(c, err)
	}
	if removed {
		h.invalidate(c.UserContext(), desktopID)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// BatchMove 배치 이동 (POST /api/desktops/:id/assets/batch)
func (h *DesktopHandler) BatchMove(c *fiber.Ctx) error {
	desktopID := c.Locals("desktopID").(int64)

	var req BatchMoveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if len(req.Moves) > maxBatchSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "too many assets"})
	}

	if err := h.store.BatchMove(c.UserContext(), desktopID, req.Moves); err != nil {
		return storeError(c, err)
	}
	h.invalidate(c.UserContext(), desktopID)

	return c.SendStatus(fiber.StatusNoContent)
}

// BatchRemove 배치 삭제 (POST /api/desktops/:id/assets/batch-delete)
func (h *DesktopHandler) BatchRemove(c *fiber.Ctx) error {
	desktopID := c.Locals("desktopID").(int64)

	var req BatchRemoveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if len(req.AssetIDs) > maxBatchSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "too many assets"})
	}

	removed, err := h.store.BatchRemove(c.UserContext(), desktopID, req.AssetIDs)
	if err != nil {
		return storeError(c, err)
	}
	if removed > 0 {
		h.invalidate(c.UserContext(), desktopID)
	}
	return c.JSON(fiber.Map{"removed": removed})
}

// SaveViewport 카메라 저장 (PUT /api/desktops/:id/viewport)
func (h *DesktopHandler) SaveViewport(c *fiber.Ctx) error {
	desktopID := c.Locals("desktopID").(int64)

	var v model.ViewportState
	if err := c.BodyParser(&v); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.store.SaveViewport(c.UserContext(), desktopID, v); err != nil {
		return storeError(c, err)
	}
	h.invalidate(c.UserContext(), desktopID)

	return c.SendStatus(fiber.StatusNoContent)
}

// GetPresence 접속 세션 목록 (GET /api/desktops/:id/presence)
func (h *DesktopHandler) GetPresence(c *fiber.Ctx) error {
	desktopID := c.Locals("desktopID").(int64)
	return c.JSON(fiber.Map{"sessions": h.presence.Sessions(c.UserContext(), desktopID)})
}

func (h *DesktopHandler) invalidate(ctx context.Context, desktopID int64) {
	if h.cache != nil {
		h.cache.InvalidateDetail(ctx, desktopID)
	}
}

func assetIDParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("assetId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid asset ID")
	}
	return id, nil
}

// storeError 서비스 에러를 HTTP 응답으로 변환
func storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrDesktopNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "desktop not found"})
	case errors.Is(err, service.ErrAssetNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "asset not found"})
	case errors.Is(err, service.ErrInvalidAsset), errors.Is(err, service.ErrInvalidViewport):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	log.Printf("[Desktop] %s %s failed: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}

// RegisterRoutes 데스크톱 REST + 릴레이 라우트 등록
func RegisterRoutes(app fiber.Router, jwtManager *auth.JWTManager, access *middleware.DesktopMiddleware, desktops *DesktopHandler, relay *DesktopWSHandler) {
	api := app.Group("/api/desktops/:id", auth.AuthMiddleware(jwtManager))
	api.Get("", access.RequireViewer(), desktops.GetDesktop)
	api.Get("/presence", access.RequireViewer(), desktops.GetPresence)
	// 뷰포트는 각자 보는 화면이므로 VIEW 권한으로 저장
	api.Put("/viewport", access.RequireViewer(), desktops.SaveViewport)
	api.Post("/assets", access.RequireEditor(), desktops.AddAsset)
	api.Post("/assets/batch", access.RequireEditor(), desktops.BatchMove)
	api.Post("/assets/batch-delete", access.RequireEditor(), desktops.BatchRemove)
	api.Patch("/assets/:assetId", access.RequireEditor(), desktops.UpdateAsset)
	api.Delete("/assets/:assetId", access.RequireEditor(), desktops.RemoveAsset)

	app.Get("/ws/desktops/:id",
		auth.AuthMiddleware(jwtManager),
		access.RequireViewer(),
		relay.Upgrade(),
		relay.Handler(),
	)
}
