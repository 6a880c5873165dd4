package handler

import (
	"log"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"desktop-realtime/internal/auth"
	"desktop-realtime/internal/config"
	"desktop-realtime/internal/middleware"
	"desktop-realtime/internal/realtime"
	"desktop-realtime/internal/session"
)

const outboxSize = 256

// DesktopWSHandler 데스크톱 릴레이 WebSocket 핸들러
type DesktopWSHandler struct {
	hub *DesktopHub
	cfg config.WebSocketConfig
}

// NewDesktopWSHandler DesktopWSHandler 생성
func NewDesktopWSHandler(hub *DesktopHub, cfg config.WebSocketConfig) *DesktopWSHandler {
	return &DesktopWSHandler{hub: hub, cfg: cfg}
}

// Upgrade 업그레이드 요청 확인 후 세션 정보를 Locals 에 저장
// AuthMiddleware, DesktopMiddleware.RequireViewer 뒤에 둔다
func (h *DesktopWSHandler) Upgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
				"error": "websocket upgrade required",
			})
		}

		claims, err := auth.GetClaimsFromContext(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}

		c.Locals("sender", realtime.Sender{
			SessionID: session.NormalizeID(c.Query("session")),
			UserID:    claims.UserID,
			Email:     claims.Email,
			FirstName: claims.FirstName,
		})
		c.Locals("canEdit", middleware.GetAccess(c).CanEdit())
		return c.Next()
	}
}

// Handler WebSocket 핸들러
func (h *DesktopWSHandler) Handler() fiber.Handler {
	return websocket.New(h.handle, websocket.Config{
		HandshakeTimeout: h.cfg.HandshakeTimeout,
		ReadBufferSize:   h.cfg.ReadBufferSize,
		WriteBufferSize:  h.cfg.WriteBufferSize,
	})
}

func (h *DesktopWSHandler) handle(c *websocket.Conn) {
	// 패닉 복구 - 서버 크래시 방지
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Relay] 패닉 복구: %v", r)
		}
	}()

	desktopID, _ := c.Locals("desktopID").(int64)
	sender, ok := c.Locals("sender").(realtime.Sender)
	if !ok || desktopID == 0 {
		c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid session"))
		c.Close()
		return
	}
	canEdit, _ := c.Locals("canEdit").(bool)

	s := session.New(desktopID, sender, canEdit, c, outboxSize)
	h.hub.Join(s)

	go func() {
		if err := s.WritePump(h.cfg.WriteTimeout); err != nil {
			log.Printf("[Relay %d] write failed: session=%s: %v", desktopID, s.ID, err)
			// 읽기 루프도 깨운다
			c.Close()
		}
	}()

	defer func() {
		h.hub.Leave(s)
		c.Close()
	}()

	// 하트비트 간격의 두 배 동안 아무것도 안 오면 끊는다
	readTimeout := 2 * h.cfg.HeartbeatInterval
	for {
		if readTimeout > 0 {
			c.SetReadDeadline(time.Now().Add(readTimeout))
		}
		_, msg, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[Relay %d] read error: session=%s: %v", desktopID, s.ID, err)
			}
			return
		}
		h.hub.HandleMessage(s, msg)
	}
}
