package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"desktop-realtime/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: ":0", ServerID: "test"},
		CORS:   config.CORSConfig{AllowOrigins: "*", AllowHeaders: "Authorization"},
		Auth:   config.AuthConfig{JWTSecret: "secret", AccessTokenExpiry: time.Hour},
	}
}

func TestRoutesWithoutBackends(t *testing.T) {
	srv := New(testConfig(), nil, nil)
	srv.SetupMiddleware()
	srv.SetupRoutes()

	tests := []struct {
		target string
		status int
	}{
		{"/health/live", fiber.StatusOK},
		{"/api/desktops/1", fiber.StatusUnauthorized},
		{"/api/desktops/1/presence", fiber.StatusUnauthorized},
		{"/ws/desktops/1", fiber.StatusUnauthorized},
		{"/api/unknown", fiber.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			resp, err := srv.App().Test(httptest.NewRequest("GET", tt.target, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
