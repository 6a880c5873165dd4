package middleware

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"desktop-realtime/internal/auth"
	"desktop-realtime/internal/service"
)

// AccessChecker 데스크톱 권한 조회
type AccessChecker interface {
	Access(ctx context.Context, desktopID, userID int64) (service.Access, error)
}

// DesktopMiddleware 데스크톱 권한 미들웨어
type DesktopMiddleware struct {
	access AccessChecker
}

// NewDesktopMiddleware DesktopMiddleware 생성
func NewDesktopMiddleware(access AccessChecker) *DesktopMiddleware {
	return &DesktopMiddleware{access: access}
}

// GetDesktopID URL의 :id 에서 데스크톱 ID 추출
func GetDesktopID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid desktop ID")
	}
	return id, nil
}

// GetAccess 미들웨어가 저장한 권한 조회
func GetAccess(c *fiber.Ctx) service.Access {
	if a, ok := c.Locals("access").(service.Access); ok {
		return a
	}
	return service.AccessNone
}

// RequireViewer 소유자 또는 공유 대상(VIEW 이상)
func (m *DesktopMiddleware) RequireViewer() fiber.Handler {
	return m.require(service.Access.CanView, "no access to desktop")
}

// RequireEditor 소유자 또는 EDIT 공유 대상
func (m *DesktopMiddleware) RequireEditor() fiber.Handler {
	return m.require(service.Access.CanEdit, "edit permission required")
}

func (m *DesktopMiddleware) require(allowed func(service.Access) bool, denied string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := auth.GetClaimsFromContext(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}

		desktopID, err := GetDesktopID(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid desktop ID",
			})
		}

		access, err := m.access.Access(c.UserContext(), desktopID, claims.UserID)
		if errors.Is(err, service.ErrDesktopNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "desktop not found",
			})
		}
		if err != nil {
			log.Printf("[Desktop %d] access check failed: %v", desktopID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to check access",
			})
		}

		if !allowed(access) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": denied,
			})
		}

		// 데스크톱 ID와 권한을 컨텍스트에 저장
		c.Locals("desktopID", desktopID)
		c.Locals("access", access)
		return c.Next()
	}
}
