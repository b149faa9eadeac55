package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/medmap/scheduling-api/internal/config"
	availabilityHandler "github.com/medmap/scheduling-api/internal/handler/availability"
	bookingHandler "github.com/medmap/scheduling-api/internal/handler/booking"
	"github.com/medmap/scheduling-api/internal/handler/health"
	membershipHandler "github.com/medmap/scheduling-api/internal/handler/membership"
	paymentHandler "github.com/medmap/scheduling-api/internal/handler/payment"
	promHandler "github.com/medmap/scheduling-api/internal/handler/prometheus"
	scheduleHandler "github.com/medmap/scheduling-api/internal/handler/schedule"
	"github.com/medmap/scheduling-api/internal/middleware"
	"github.com/medmap/scheduling-api/internal/repository/postgres"
	"github.com/medmap/scheduling-api/internal/router"
	bookingService "github.com/medmap/scheduling-api/internal/service/booking"
	eventService "github.com/medmap/scheduling-api/internal/service/event"
	membershipService "github.com/medmap/scheduling-api/internal/service/membership"
	paymentService "github.com/medmap/scheduling-api/internal/service/payment"
	scheduleService "github.com/medmap/scheduling-api/internal/service/schedule"
	"github.com/medmap/scheduling-api/pkg/auth"
	"github.com/medmap/scheduling-api/pkg/logger"
	"github.com/medmap/scheduling-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Log.Console,
	})

	if cfg.JWT.Secret == "" {
		appLogger.Fatal(fmt.Errorf("JWT_SECRET is not set"), "invalid configuration")
	}
	bookingFee, err := decimal.NewFromString(cfg.Booking.BookingFee)
	if err != nil {
		appLogger.Fatal(err, "invalid booking fee", "booking_fee", cfg.Booking.BookingFee)
	}
	clinicTZ, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		appLogger.Fatal(err, "invalid booking timezone", "timezone", cfg.Booking.Timezone)
	}
	plans, err := membershipService.PlansFromConfig(cfg.Membership)
	if err != nil {
		appLogger.Fatal(err, "invalid membership plans")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.NewMetrics(registry, cfg.Monitoring.MetricsPrefix, "api")

	// Repositories
	scheduleRepo := postgres.NewScheduleRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	contactRepo := postgres.NewContactRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	membershipRepo := postgres.NewMembershipRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)
	transactor := postgres.NewTransactor(db)

	// Services
	granularity := scheduleService.Granularity(cfg.Booking.SlotGranularityMinutes)
	eventSvc := eventService.NewEventService(outboxRepo)
	scheduleSvc := scheduleService.NewService(scheduleRepo, doctorRepo, appLogger, appMetrics)
	resolver := scheduleService.NewResolver(scheduleRepo, bookingRepo, granularity)
	bookingSvc := bookingService.NewService(bookingRepo, doctorRepo, scheduleRepo, transactor, eventSvc, bookingService.Config{
		BookingFee:      bookingFee,
		SlotGranularity: granularity,
		Location:        clinicTZ,
	}, appLogger, appMetrics)
	membershipSvc := membershipService.NewService(membershipRepo, transactor, eventSvc, plans, appLogger)
	paymentSvc := paymentService.NewService(
		paymentRepo,
		bookingRepo,
		contactRepo,
		bookingSvc,
		membershipSvc,
		paymentService.GatewayConfigFrom(cfg.PayFast),
		appLogger,
		appMetrics,
	)

	// HTTP
	if err := middleware.RegisterValidators(); err != nil {
		appLogger.Fatal(err, "failed to register validators")
	}
	gin.SetMode(gin.ReleaseMode)

	authMiddleware := middleware.NewAuthMiddleware(auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer))
	handlers := router.Handlers{
		Health: health.NewHandler(
			map[string]health.Pinger{"database": db},
			promHandler.New(registry).Handler(),
		),
		Availability: availabilityHandler.NewHandler(resolver),
		Schedule:     scheduleHandler.NewHandler(scheduleSvc),
		Booking:      bookingHandler.NewHandler(bookingSvc, authMiddleware),
		Payment:      paymentHandler.NewHandler(paymentSvc, appLogger),
		Membership:   membershipHandler.NewHandler(membershipSvc),
	}

	r := router.NewRouter(
		authMiddleware,
		handlers,
		middleware.NewHTTPMetrics(registry, cfg.Monitoring.MetricsPrefix+"_http"),
		appLogger,
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit: middleware.RateLimiterConfig{
				Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
				Burst: cfg.RateLimit.Burst,
			},
			CORSConfig:     middleware.DefaultCORSConfig(cfg.Server.AllowedOrigins),
			RequestTimeout: cfg.Server.RequestTimeout,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal(err, "server forced to shutdown")
	}

	appLogger.Info("server exited properly")
}
