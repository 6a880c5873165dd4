package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"desktop-realtime/internal/auth"
	"desktop-realtime/internal/cache"
	"desktop-realtime/internal/config"
	"desktop-realtime/internal/database"
	"desktop-realtime/internal/handler"
	"desktop-realtime/internal/middleware"
	"desktop-realtime/internal/presence"
	"desktop-realtime/internal/service"
)

// Server Fiber 서버 래퍼
type Server struct {
	app               *fiber.App
	cfg               *config.Config
	db                *gorm.DB
	redis             *cache.RedisClient
	hub               *handler.DesktopHub
	desktopHandler    *handler.DesktopHandler
	desktopWSHandler  *handler.DesktopWSHandler
	healthHandler     *handler.HealthHandler
	desktopMiddleware *middleware.DesktopMiddleware
	jwtManager        *auth.JWTManager
	cancel            context.CancelFunc
}

// New 새 서버 인스턴스 생성
// redisClient 가 nil 이면 단일 노드 모드 (캐시/멀티 노드 릴레이 없음)
func New(cfg *config.Config, db *gorm.DB, redisClient *cache.RedisClient) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "Desktop Realtime Relay",
		ServerHeader:          "Fiber",
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		Prefork:               false, // WebSocket과 호환성 문제로 비활성화
		ReadBufferSize:        16384, // 16KB - 큰 헤더 허용
		WriteBufferSize:       16384,
		BodyLimit:             4 * 1024 * 1024, // 4MB
		DisableStartupMessage: false,
	})

	// Auth 초기화
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)
	desktops := service.NewDesktopService(db)

	// Redis 가 있으면 로스터/팬아웃/캐시 사용
	var (
		roster      handler.Roster
		detailCache handler.DetailCache
		redisPinger handler.Pinger
	)
	if redisClient != nil {
		roster = presence.NewRoster(redisClient.Client(), cfg.Redis.RosterTTL, cfg.Server.ServerID)
		detailCache = redisClient
		redisPinger = handler.PingFunc(redisClient.Health)
		log.Printf("✅ Redis presence roster enabled (server %s)", cfg.Server.ServerID)
	} else {
		log.Println("ℹ️ Redis not configured (single node relay, no detail cache)")
	}

	hub := handler.NewDesktopHub(roster)
	dbPinger := handler.PingFunc(func(ctx context.Context) error { return database.Ping() })

	return &Server{
		app:               app,
		cfg:               cfg,
		db:                db,
		redis:             redisClient,
		hub:               hub,
		desktopHandler:    handler.NewDesktopHandler(desktops, detailCache, hub),
		desktopWSHandler:  handler.NewDesktopWSHandler(hub, cfg.WebSocket),
		healthHandler:     handler.NewHealthHandler(dbPinger, redisPinger, hub),
		desktopMiddleware: middleware.NewDesktopMiddleware(desktops),
		jwtManager:        jwtManager,
	}
}

// SetupMiddleware 미들웨어 설정
func (s *Server) SetupMiddleware() {
	// 패닉 복구
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// 로깅
	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Asia/Seoul",
	}))

	// CORS
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORS.AllowOrigins,
		AllowHeaders:     s.cfg.CORS.AllowHeaders,
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowCredentials: s.cfg.CORS.AllowOrigins != "*",
	}))
}

// SetupRoutes 라우트 설정
func (s *Server) SetupRoutes() {
	// 헬스체크 엔드포인트
	s.app.Get("/health", s.healthHandler.Check)
	s.app.Get("/health/live", s.healthHandler.Liveness)
	s.app.Get("/health/ready", s.healthHandler.Readiness)

	// Rate Limiter 설정 (릴레이 접속 폭주 방지)
	s.app.Use("/ws", limiter.New(limiter.Config{
		Max:        30,              // 최대 30회
		Expiration: 1 * time.Minute, // 1분당
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() // IP 기반 제한
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	}))

	handler.RegisterRoutes(s.app, s.jwtManager, s.desktopMiddleware, s.desktopHandler, s.desktopWSHandler)
}

// Start 서버 시작 (SIGINT/SIGTERM 까지 블록)
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	// 다른 노드의 릴레이 메시지 수신
	go func() {
		if err := s.hub.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("⚠️ Relay fan-out stopped: %v", err)
		}
	}()

	// Graceful Shutdown 설정
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("🛑 Shutting down server...")
		if err := s.Shutdown(); err != nil {
			log.Fatalf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("🚀 Desktop Realtime Relay starting on %s", s.cfg.Server.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost%s/ws/desktops/:id", s.cfg.Server.Port)

	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown 서버 종료
func (s *Server) Shutdown() error {
	if s.cancel != nil {
		s.cancel()
	}
	return s.app.ShutdownWithTimeout(30 * time.Second)
}

// App 테스트용 fiber 앱
func (s *Server) App() *fiber.App {
	return s.app
}
