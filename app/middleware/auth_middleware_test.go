package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/amirphl/Susanoo/app/services"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newAuthApp(t *testing.T, ttl time.Duration) (*fiber.App, services.TokenService) {
	t.Helper()
	svc, err := services.NewTokenService(ttl, "susanoo", "susanoo-api", false, "", testSecret)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(NewAuthMiddleware(svc).Authenticate())
	app.Get("/whoami", func(c fiber.Ctx) error {
		ownerID, _ := c.Locals(OwnerIDKey).(uint)
		return c.SendString(strconv.FormatUint(uint64(ownerID), 10))
	})
	return app, svc
}

func TestAuthenticate(t *testing.T) {
	t.Run("valid token exposes the owner", func(t *testing.T) {
		app, svc := newAuthApp(t, time.Hour)
		token, err := svc.GenerateAccessToken(42)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "42", string(body))
	})

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not.a.jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app, _ := newAuthApp(t, time.Hour)
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}

	t.Run("token signed with another secret", func(t *testing.T) {
		app, _ := newAuthApp(t, time.Hour)
		other, err := services.NewTokenService(time.Hour, "susanoo", "susanoo-api", false, "", "ffffffffffffffffffffffffffffffff")
		require.NoError(t, err)
		token, err := other.GenerateAccessToken(42)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
