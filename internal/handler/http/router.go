package http

import (
	"log/slog"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// RouterOptions carries the router's ambient settings.
type RouterOptions struct {
	Logger         *slog.Logger
	LogLevel       slog.Level
	AllowedOrigins []string
}

func NewRouter(
	JWTService jwt.Service,
	authHandler AuthHandler,
	livenessHandler LivenessHandler,
	attendanceHandler AttendanceHandler,
	opts RouterOptions,
) *chi.Mux {
	r := chi.NewRouter()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  opts.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	authenticated := func(r chi.Router) {
		r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
		r.Use(middleware.AuthRequired(JWTService))
	}

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)

			// Requires authentication
			r.Group(func(r chi.Router) {
				authenticated(r)
				r.Post("/logout", authHandler.Logout)
				r.Get("/me", authHandler.Me)
				r.Post("/sse-token", authHandler.SSEToken)
			})
		})

		r.Route("/attendance", func(r chi.Router) {
			// EventSource cannot send headers; the stream checks its own query token.
			r.Get("/stream", attendanceHandler.Stream)

			r.Group(func(r chi.Router) {
				authenticated(r)
				r.Post("/punch", attendanceHandler.Punch)
				r.Get("/punches", attendanceHandler.Punches)
				r.Get("/today", attendanceHandler.Today)
				r.Get("/date/{date}", attendanceHandler.ByDate)
				r.Get("/history", attendanceHandler.History)
				r.Get("/monthly/{year}/{month}", attendanceHandler.Monthly)
			})
		})

		r.Group(func(r chi.Router) {
			authenticated(r)
			r.Post("/liveness/analyze", livenessHandler.Analyze)
		})
	})
	return r
}
