package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetricsApp() *fiber.App {
	app := fiber.New()
	app.Use(Metrics())
	dispatch := app.Group("/api/v1/dispatch", func(c fiber.Ctx) error {
		c.Locals(OwnerIDKey, uint(314))
		return c.Next()
	})
	dispatch.Post("/campaigns/:id/seed", func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusAccepted)
	})
	app.Post("/api/v1/provider/callbacks", func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestMetrics(t *testing.T) {
	app := newMetricsApp()
	send := func(method, path string) int {
		resp, err := app.Test(httptest.NewRequest(method, path, nil))
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	t.Run("route template and owner are recorded for dispatch calls", func(t *testing.T) {
		const route = "/api/v1/dispatch/campaigns/:id/seed"
		requests := apiRequestsTotal.WithLabelValues(surfaceDispatch, route, http.MethodPost, "202")
		owner := apiOwnerRequestsTotal.WithLabelValues("314", surfaceDispatch)
		beforeRequests, beforeOwner := testutil.ToFloat64(requests), testutil.ToFloat64(owner)

		assert.Equal(t, http.StatusAccepted, send(http.MethodPost, "/api/v1/dispatch/campaigns/11/seed"))
		assert.Equal(t, http.StatusAccepted, send(http.MethodPost, "/api/v1/dispatch/campaigns/12/seed"))

		assert.Equal(t, beforeRequests+2, testutil.ToFloat64(requests))
		assert.Equal(t, beforeOwner+2, testutil.ToFloat64(owner))
		assert.Zero(t, testutil.ToFloat64(apiInFlight.WithLabelValues(surfaceDispatch)))
	})

	t.Run("callbacks carry no owner", func(t *testing.T) {
		requests := apiRequestsTotal.WithLabelValues(surfaceCallbacks, "/api/v1/provider/callbacks", http.MethodPost, "204")
		before := testutil.ToFloat64(requests)

		assert.Equal(t, http.StatusNoContent, send(http.MethodPost, "/api/v1/provider/callbacks"))

		assert.Equal(t, before+1, testutil.ToFloat64(requests))
		assert.Zero(t, testutil.ToFloat64(apiOwnerRequestsTotal.WithLabelValues("0", surfaceCallbacks)))
	})
}

func TestRouteSurface(t *testing.T) {
	cases := map[string]string{
		"/api/v1/dispatch/call-sessions":            surfaceDispatch,
		"/api/v1/dispatch/sessions/:id/events.xlsx": surfaceDispatch,
		"/api/v1/provider/queue/drain":              surfaceProvider,
		"/api/v1/provider/callbacks":                surfaceCallbacks,
		"/api/v1/health":                            surfaceOps,
		"/metrics":                                  surfaceOps,
		"unmatched":                                 surfaceOther,
	}
	for route, want := range cases {
		t.Run(route, func(t *testing.T) {
			assert.Equal(t, want, routeSurface(route))
		})
	}
}
