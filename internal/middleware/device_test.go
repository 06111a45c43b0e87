package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/zinco/internal/utils"
)

func newDeviceApp() *fiber.App {
	app := fiber.New()
	app.Get("/whoami", DeviceMiddleware("secret"), func(c *fiber.Ctx) error {
		id, ok := GetDeviceID(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.SendString(id.String())
	})
	return app
}

func TestDeviceMiddleware(t *testing.T) {
	app := newDeviceApp()
	id := uuid.New()
	token, err := utils.GenerateDeviceToken("secret", id, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDeviceMiddleware_Rejects(t *testing.T) {
	app := newDeviceApp()
	foreign, err := utils.GenerateDeviceToken("other-secret", uuid.New(), time.Hour)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":      "",
		"wrong scheme": "Basic abc",
		"garbage":      "Bearer not-a-token",
		"wrong secret": "Bearer " + foreign,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}
