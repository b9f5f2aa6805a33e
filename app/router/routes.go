// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"context"
	"encoding/json"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/app/handlers"
	"github.com/amirphl/Susanoo/app/middleware"
	"github.com/amirphl/Susanoo/config"
	"github.com/amirphl/Susanoo/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/swaggo/swag"
)

// HealthChecker reports whether a backing dependency is reachable
type HealthChecker func(ctx context.Context) error

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// Handlers groups the endpoint handlers served by the router
type Handlers struct {
	Dispatch handlers.DispatchHandlerInterface
	Sessions handlers.SessionHandlerInterface
	Provider handlers.ProviderHandlerInterface
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app      *fiber.App
	handlers Handlers
	auth     *middleware.AuthMiddleware
	cfg      *config.ProductionConfig
	logger   logrus.FieldLogger
	checks   map[string]HealthChecker
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(cfg *config.ProductionConfig, h Handlers, auth *middleware.AuthMiddleware, logger logrus.FieldLogger, checks map[string]HealthChecker) *FiberRouter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &FiberRouter{
		handlers: h,
		auth:     auth,
		cfg:      cfg,
		logger:   logger,
		checks:   checks,
	}
	r.app = fiber.New(fiber.Config{
		AppName:      "Susanoo Dispatch API",
		ServerHeader: "Susanoo",
		ErrorHandler: r.errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	return r
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.setupMiddleware()

	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")

	// Ops routes stay outside rate limiting and auth
	api.Get("/health", r.healthCheck)
	api.Get("/swagger.json", r.serveSwaggerJSON)

	api.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.GlobalRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error:   dto.ErrorDetail{Code: "RATE_LIMIT_EXCEEDED"},
			})
		},
	}))

	// Provider callbacks authenticate with the shared secret instead of a bearer token
	api.Post("/provider/callbacks", r.handlers.Provider.Callback)

	dispatch := api.Group("/dispatch", r.auth.Authenticate())
	dispatch.Post("/campaigns/:id/seed", r.handlers.Dispatch.SeedCampaign)
	dispatch.Post("/call-sessions", r.handlers.Dispatch.RunCallSession)
	dispatch.Post("/whatsapp-pass", r.handlers.Dispatch.RunWhatsAppPass)
	dispatch.Post("/reconcile", r.handlers.Dispatch.Reconcile)
	dispatch.Get("/sessions/latest", r.handlers.Sessions.LatestSession)
	dispatch.Get("/sessions/:id/events.xlsx", r.handlers.Sessions.ExportSessionEvents)

	provider := api.Group("/provider", r.auth.Authenticate())
	provider.Post("/batches/submit", r.handlers.Provider.SubmitBatch)
	provider.Post("/queue/drain", r.handlers.Provider.DrainQueue)

	r.app.Use(r.notFoundHandler)

	r.logger.Info("Routes configured successfully")
}

func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return uuid.NewString()
		},
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.WithFields(logrus.Fields{
				"request_id": requestid.FromContext(c),
				"path":       c.Path(),
				"method":     c.Method(),
				"ip":         c.IP(),
				"panic":      e,
			}).Error("Recovered from panic")
		},
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000, // 1 year
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		XDNSPrefetchControl:   "off",
		XDownloadOptions:      "noopen",
		XPermittedCrossDomain: "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           r.cfg.Security.CORSMaxAge,
	}))

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	}

	r.app.Use(middleware.Metrics())

	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health" || c.Path() == r.cfg.Metrics.Path
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	r.logger.WithField("address", address).Info("Starting server")
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	status := fiber.StatusOK
	dependencies := make(fiber.Map, len(r.checks))
	for name, check := range r.checks {
		if err := check(ctx); err != nil {
			dependencies[name] = err.Error()
			status = fiber.StatusServiceUnavailable
			continue
		}
		dependencies[name] = "ok"
	}

	state := "ok"
	if status != fiber.StatusOK {
		state = "degraded"
	}
	return c.Status(status).JSON(dto.APIResponse{
		Success: status == fiber.StatusOK,
		Message: "Service health",
		Data: fiber.Map{
			"status":       state,
			"timestamp":    utils.UTCNow().Unix(),
			"version":      r.cfg.Deployment.Version,
			"service":      "susanoo-dispatch",
			"dependencies": dependencies,
		},
	})
}

func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	doc, err := swag.ReadDoc()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Failed to load Swagger documentation",
			Error:   dto.ErrorDetail{Code: "SWAGGER_LOAD_ERROR"},
		})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.SendString(doc)
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

func (r *FiberRouter) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	r.logger.WithError(err).WithFields(logrus.Fields{
		"status":     code,
		"path":       c.Path(),
		"request_id": requestid.FromContext(c),
	}).Error("Request failed")

	message := "An internal server error occurred"
	if code < fiber.StatusInternalServerError {
		message = err.Error()
	}
	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}
