package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medmap/scheduling-api/internal/middleware"
	"github.com/medmap/scheduling-api/pkg/logger"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultMaxBodyBytes   = 1 << 20
	hstsMaxAge            = 365 * 24 * time.Hour
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// PublicHandler also mounts routes that skip authentication.
type PublicHandler interface {
	Handler
	RegisterPublicRoutes(*gin.RouterGroup)
}

type Handlers struct {
	Health       Handler
	Availability Handler
	Schedule     Handler
	Booking      Handler
	Payment      PublicHandler
	Membership   Handler
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        middleware.RateLimiterConfig
	CORSConfig       middleware.CORSConfig
	RequestTimeout   time.Duration
	MaxBodyBytes     int64
}

type Router struct {
	engine    *gin.Engine
	auth      *middleware.AuthMiddleware
	handlers  Handlers
	rateLimit gin.HandlerFunc
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	handlers Handlers,
	httpMetrics *middleware.HTTPMetrics,
	log *logger.Logger,
	config RouterConfig,
) *Router {
	engine := gin.New()

	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
	}

	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaultRequestTimeout
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaultMaxBodyBytes
	}

	engine.Use(
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.ErrorHandler(log),
	)
	if httpMetrics != nil {
		engine.Use(httpMetrics.Middleware())
	}
	engine.Use(
		middleware.Timeout(config.RequestTimeout),
		middleware.CORS(config.CORSConfig),
		middleware.SecurityHeaders(hstsMaxAge),
		middleware.SizeLimit(config.MaxBodyBytes),
	)

	if config.RateLimitEnabled {
		r.rateLimit = middleware.NewRateLimiter(config.RateLimit).RateLimit()
	}

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	// The gateway webhook is never rate limited.
	r.handlers.Payment.RegisterPublicRoutes(api)

	limited := api.Group("")
	if r.rateLimit != nil {
		limited.Use(r.rateLimit)
	}
	r.handlers.Health.RegisterRoutes(limited)
	r.handlers.Availability.RegisterRoutes(limited)

	protected := limited.Group("")
	protected.Use(r.auth.Authenticate())
	r.setupProtectedRoutes(protected)
}

func (r *Router) setupProtectedRoutes(rg *gin.RouterGroup) {
	r.handlers.Schedule.RegisterRoutes(rg)
	r.handlers.Booking.RegisterRoutes(rg)
	r.handlers.Payment.RegisterRoutes(rg)
	r.handlers.Membership.RegisterRoutes(rg)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
