package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/config"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/auth"
	appHTTP "github.com/cmlabs-hris/hris-mobile-bff/internal/handler/http"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/pkg/database"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/pkg/events"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/pkg/hrmsapi"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/repository/memory"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/repository/postgresql"
	redisRepo "github.com/cmlabs-hris/hris-mobile-bff/internal/repository/redis"
	attendanceService "github.com/cmlabs-hris/hris-mobile-bff/internal/service/attendance"
	serviceAuth "github.com/cmlabs-hris/hris-mobile-bff/internal/service/auth"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/service/file"
	livenessService "github.com/cmlabs-hris/hris-mobile-bff/internal/service/liveness"
	"github.com/cmlabs-hris/hris-mobile-bff/migrations"
	"github.com/go-chi/httplog/v3"
)

type stores struct {
	sessions auth.SessionStore
	state    attendance.StateStore
	lock     attendance.PunchLock
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading config: ", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.App.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logFormat := httplog.SchemaECS.Concise(cfg.App.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "hris-mobile-bff"),
		slog.String("version", "v1.0.0"),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	location := cfg.Location()

	// Sessions, today's state and punch locks
	st := stores{
		sessions: memory.NewSessionRepository(),
		state:    memory.NewAttendanceStateRepository(),
		lock:     memory.NewPunchLock(),
	}
	if cfg.Redis.Enabled {
		client, err := redisRepo.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("Failed to connect to redis: ", err)
		}
		defer client.Close()
		st = stores{
			sessions: redisRepo.NewSessionRepository(client),
			state:    redisRepo.NewAttendanceStateRepository(client),
			lock:     redisRepo.NewPunchLock(client),
		}
		slog.Info("Using redis stores", "addr", cfg.Redis.Addr)
	}

	// Punch audits
	audits := memory.NewPunchAuditRepository()
	if cfg.Database.Enabled {
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
			MaxConns: int32(cfg.Database.MaxConns),
		})
		if err != nil {
			log.Fatal("Error connecting to database: ", err)
		}
		defer db.Close()
		if err := migrations.Up(ctx, db); err != nil {
			log.Fatal("Failed to migrate database: ", err)
		}
		audits = postgresql.NewPunchAuditRepository(db)
		slog.Info("Using postgres punch audits", "host", cfg.Database.Host)
	}

	// Punch events
	var publisher attendance.EventPublisher = events.NoopPublisher{}
	if cfg.AMQP.URL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Fatal("Failed to connect to message broker: ", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
		slog.Info("Publishing punch events", "exchange", cfg.AMQP.Exchange)
	}

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	hrms := hrmsapi.NewClient(cfg.Upstream.BaseURL, nil, hrmsapi.SessionTokens{Store: st.sessions})
	hub := sse.NewHub()

	selector := livenessService.NewPlatformSelector(
		livenessService.NewPixelHeuristicStrategy(),
		livenessService.NewTrustedCaptureStrategy(),
		cfg.Liveness.EnforcePixel,
	)
	reconciler := attendanceService.NewReconciler(location)

	authService := serviceAuth.NewAuthService(hrms, st.sessions, JWTService, cfg.Upstream.Timeout)
	punchService := attendanceService.NewPunchService(
		st.lock,
		selector,
		file.NewFileService(),
		hrms,
		reconciler,
		st.state,
		audits,
		hub,
		publisher,
		attendanceService.PunchOptions{
			MarkedBy:     cfg.Upstream.MarkedBy,
			LockTTL:      cfg.Punch.LockTTL,
			PunchTimeout: cfg.Upstream.PunchTimeout,
			FetchTimeout: cfg.Upstream.Timeout,
			Location:     location,
		},
	)
	queryService := attendanceService.NewAttendanceService(
		hrms,
		reconciler,
		st.state,
		audits,
		hub,
		cfg.Upstream.Timeout,
		location,
	)

	// Maintenance
	scheduler := cron.NewScheduler()
	cron.NewMaintenanceJobs(audits, st.state, JWTService, cfg.Punch.AuditRetention, location).
		RegisterJobs(scheduler, cfg.Punch.MaintenanceTick)
	scheduler.Start()
	defer scheduler.Stop()

	router := appHTTP.NewRouter(
		JWTService,
		appHTTP.NewAuthHandler(authService),
		appHTTP.NewLivenessHandler(livenessService.NewLivenessService(selector)),
		appHTTP.NewAttendanceHandler(punchService, queryService, JWTService),
		appHTTP.RouterOptions{
			Logger:         logger,
			LogLevel:       level,
			AllowedOrigins: cfg.App.CORSAllowedOrigins,
		},
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server running", "addr", server.Addr, "upstream", cfg.Upstream.BaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	// Open event streams would otherwise hold Shutdown until its deadline.
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}
