package middleware

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"desktop-realtime/internal/auth"
	"desktop-realtime/internal/service"
)

type fakeAccess map[int64]service.Access

func (f fakeAccess) Access(ctx context.Context, desktopID, userID int64) (service.Access, error) {
	switch desktopID {
	case 404:
		return service.AccessNone, service.ErrDesktopNotFound
	case 500:
		return service.AccessNone, errors.New("db down")
	}
	return f[userID], nil
}

func TestDesktopMiddleware(t *testing.T) {
	jwt := auth.NewJWTManager("secret", time.Hour)
	m := NewDesktopMiddleware(fakeAccess{1: service.AccessOwner, 2: service.AccessView, 3: service.AccessEdit})

	app := fiber.New()
	api := app.Group("/d/:id", auth.AuthMiddleware(jwt))
	api.Get("/", m.RequireViewer(), func(c *fiber.Ctx) error {
		return c.SendString(GetAccess(c).String())
	})
	api.Post("/", m.RequireEditor(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	token := func(userID int64) string {
		tok, err := jwt.GenerateAccessToken(userID, "u@eum.io", "U")
		require.NoError(t, err)
		return tok
	}

	tests := []struct {
		name   string
		method string
		path   string
		user   int64
		status int
	}{
		{"owner reads", "GET", "/d/7", 1, fiber.StatusOK},
		{"viewer reads", "GET", "/d/7", 2, fiber.StatusOK},
		{"stranger reads", "GET", "/d/7", 9, fiber.StatusForbidden},
		{"viewer edits", "POST", "/d/7", 2, fiber.StatusForbidden},
		{"editor edits", "POST", "/d/7", 3, fiber.StatusNoContent},
		{"missing desktop", "GET", "/d/404", 1, fiber.StatusNotFound},
		{"lookup failure", "GET", "/d/500", 1, fiber.StatusInternalServerError},
		{"bad id", "GET", "/d/abc", 1, fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+token(tt.user))
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
