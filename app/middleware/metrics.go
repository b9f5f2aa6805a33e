package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API surfaces a request can land on. Everything unmatched is "other".
const (
	surfaceDispatch  = "dispatch"
	surfaceProvider  = "provider"
	surfaceCallbacks = "callbacks"
	surfaceOps       = "ops"
	surfaceOther     = "other"
)

var (
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "susanoo",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "API requests by surface, route template, method and status",
		},
		[]string{"surface", "route", "method", "status"},
	)

	// Call sessions hold the request for most of a minute, so buckets reach past it
	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "susanoo",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request latencies in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"surface", "route"},
	)

	// Authenticated traffic per owner. Unauthenticated requests carry no owner and are not counted.
	apiOwnerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "susanoo",
			Subsystem: "api",
			Name:      "owner_requests_total",
			Help:      "Authenticated API requests by owner and surface",
		},
		[]string{"owner", "surface"},
	)

	apiInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "susanoo",
			Subsystem: "api",
			Name:      "inflight_requests",
			Help:      "API requests currently being served by surface",
		},
		[]string{"surface"},
	)
)

// routeSurface maps a route template or raw path to the API surface serving it
func routeSurface(route string) string {
	switch {
	case strings.HasPrefix(route, "/api/v1/dispatch"):
		return surfaceDispatch
	case route == "/api/v1/provider/callbacks":
		return surfaceCallbacks
	case strings.HasPrefix(route, "/api/v1/provider"):
		return surfaceProvider
	case route == "/api/v1/health", route == "/api/v1/swagger.json", route == "/metrics":
		return surfaceOps
	}
	return surfaceOther
}

// Metrics records per-surface Prometheus metrics. The route label is the matched template
// (for example /api/v1/dispatch/campaigns/:id/seed), never the raw path, so campaign and
// session ids do not become label values. Unmatched paths collapse into one label.
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		inflight := apiInFlight.WithLabelValues(routeSurface(c.Path()))
		inflight.Inc()
		defer inflight.Dec()

		err := c.Next()

		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
			route = r.Path
		}
		surface := routeSurface(route)

		apiRequestsTotal.WithLabelValues(surface, route, c.Method(), strconv.Itoa(c.Response().StatusCode())).Inc()
		apiRequestDuration.WithLabelValues(surface, route).Observe(time.Since(start).Seconds())
		if ownerID, ok := c.Locals(OwnerIDKey).(uint); ok && ownerID != 0 {
			apiOwnerRequestsTotal.WithLabelValues(strconv.FormatUint(uint64(ownerID), 10), surface).Inc()
		}

		return err
	}
}
