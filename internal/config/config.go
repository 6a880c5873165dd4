package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 애플리케이션 전체 설정
type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
	Auth      AuthConfig
	Redis     RedisConfig
	Canvas    CanvasConfig
	Realtime  RealtimeConfig
	API       APIConfig
}

// RedisConfig Redis 설정
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Enabled   bool
	RosterTTL time.Duration // 세션 하트비트 TTL
	DetailTTL time.Duration // 데스크톱 상세 캐시 TTL
}

// AuthConfig 인증 설정
type AuthConfig struct {
	JWTSecret         string
	AccessTokenExpiry time.Duration
}

// ServerConfig HTTP 서버 설정
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	ServerID     string // 멀티 서버 릴레이 구분용
}

// WebSocketConfig WebSocket 관련 설정
type WebSocketConfig struct {
	ReadBufferSize    int
	WriteBufferSize   int
	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
	HeartbeatInterval time.Duration
}

// CORSConfig CORS 설정
type CORSConfig struct {
	AllowOrigins string
	AllowHeaders string
}

// CanvasConfig 캔버스 튜닝 값
type CanvasConfig struct {
	ZoomSensitivity      float64
	BroadcastThrottle    time.Duration
	ViewportSaveDebounce time.Duration
	DefaultAssetWidth    float64
	CullPadding          float64
	FitPadding           float64
}

// RealtimeConfig 릴레이 클라이언트 설정
type RealtimeConfig struct {
	URL                  string
	PollInterval         time.Duration
	ReconnectBase        time.Duration
	ReconnectMax         time.Duration
	MaxReconnectAttempts int
}

// APIConfig REST 클라이언트 설정
type APIConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Load 서버용 설정 로드 (JWT_SECRET 필수)
func Load() *Config {
	loadDotEnv()

	// 필수 환경 변수 검증
	jwtSecret := getRequiredEnv("JWT_SECRET")
	if jwtSecret == "change-this-secret-in-production" {
		log.Fatal("🚨 CRITICAL: JWT_SECRET must be changed from default value in production!")
	}

	cfg := load()
	cfg.Auth.JWTSecret = jwtSecret
	return cfg
}

// LoadClient 클라이언트(deskctl)용 설정 로드. JWT_SECRET 은 선택
func LoadClient() *Config {
	loadDotEnv()
	cfg := load()
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", "")
	return cfg
}

func loadDotEnv() {
	// .env 파일 로드 (없어도 에러 무시)
	if err := godotenv.Load(); err != nil {
		log.Println("ℹ️ No .env file found, using environment variables")
	}
}

func load() *Config {
	hostname, _ := os.Hostname()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("IDLE_TIMEOUT", 120*time.Second),
			ServerID:     getEnv("SERVER_ID", hostname),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:    getInt("WS_READ_BUFFER_SIZE", 16*1024),
			WriteBufferSize:   getInt("WS_WRITE_BUFFER_SIZE", 16*1024),
			HandshakeTimeout:  getDuration("WS_HANDSHAKE_TIMEOUT", 10*time.Second),
			WriteTimeout:      getDuration("WS_WRITE_TIMEOUT", 5*time.Second),
			HeartbeatInterval: getDuration("WS_HEARTBEAT_INTERVAL", 25*time.Second),
		},
		CORS: CORSConfig{
			AllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
			AllowHeaders: getEnv("CORS_ALLOW_HEADERS", "Origin, Content-Type, Accept, Authorization"),
		},
		Auth: AuthConfig{
			AccessTokenExpiry: getDuration("ACCESS_TOKEN_EXPIRY", 1*time.Hour),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getInt("REDIS_DB", 0),
			Enabled:   getBool("REDIS_ENABLED", true),
			RosterTTL: getDuration("PRESENCE_TTL", 60*time.Second),
			DetailTTL: getDuration("DETAIL_CACHE_TTL", 30*time.Second),
		},
		Canvas: CanvasConfig{
			ZoomSensitivity:      getFloat("ZOOM_SENSITIVITY", 0.001),
			BroadcastThrottle:    getDuration("BROADCAST_THROTTLE", 40*time.Millisecond),
			ViewportSaveDebounce: getDuration("VIEWPORT_SAVE_DEBOUNCE", 2000*time.Millisecond),
			DefaultAssetWidth:    getFloat("DEFAULT_ASSET_WIDTH", 300),
			CullPadding:          getFloat("CULL_PADDING", 200),
			FitPadding:           getFloat("FIT_PADDING", 100),
		},
		Realtime: RealtimeConfig{
			URL:                  getEnv("REALTIME_URL", "ws://localhost:8080"),
			PollInterval:         getDuration("POLL_INTERVAL", 10*time.Second),
			ReconnectBase:        getDuration("RECONNECT_BASE", 500*time.Millisecond),
			ReconnectMax:         getDuration("RECONNECT_MAX", 8*time.Second),
			MaxReconnectAttempts: getInt("MAX_RECONNECT_ATTEMPTS", 5),
		},
		API: APIConfig{
			BaseURL: getEnv("API_URL", "http://localhost:8080"),
			Token:   getEnv("API_TOKEN", ""),
			Timeout: getDuration("API_TIMEOUT", 10*time.Second),
		},
	}
}

// getRequiredEnv 필수 환경 변수 조회 (없으면 Fatal)
func getRequiredEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("🚨 CRITICAL: Required environment variable %s is not set!", key)
	}
	return value
}

// getEnv 환경 변수 조회 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getInt 정수형 환경 변수 조회
func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getFloat 실수형 환경 변수 조회
func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getBool 불리언 환경 변수 조회
func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getDuration 시간 환경 변수 조회
func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		// 숫자만 있으면 초로 간주
		if !strings.ContainsAny(value, "smh") {
			if secs, err := strconv.Atoi(value); err == nil {
				return time.Duration(secs) * time.Second
			}
		}
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
