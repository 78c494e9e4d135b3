// Package server is the composition root: it wires the repositories,
// services, and handlers together, owns the route table, and runs the
// HTTP server plus the notification scheduler until shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ohaline/ohaline/internal/auth"
	"github.com/ohaline/ohaline/internal/config"
	"github.com/ohaline/ohaline/internal/handler"
	"github.com/ohaline/ohaline/internal/line"
	"github.com/ohaline/ohaline/internal/middleware"
	sqliteRepo "github.com/ohaline/ohaline/internal/repository/sqlite"
	"github.com/ohaline/ohaline/internal/scheduler"
	"github.com/ohaline/ohaline/internal/service"
	"github.com/ohaline/ohaline/internal/weather"
)

// Server owns the router, the database handle, and the scheduler.
// The database is closed during graceful shutdown.
type Server struct {
	router    *chi.Mux
	cfg       config.Config
	logger    *slog.Logger
	db        *sqliteRepo.DB
	scheduler *scheduler.Scheduler
}

// New assembles the full dependency chain. Each layer receives only the
// interfaces it needs: services get repositories, handlers get services.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading timezone: %w", err)
	}

	lineLogin := auth.NewLineProvider(cfg.LineLoginChannelID, cfg.LineLoginChannelSecret, cfg.LineLoginCallbackURL)
	bot := line.NewClient(cfg.LineChannelAccessToken)

	authService := service.NewAuthService(db, tokens, logger)
	todoService := service.NewTodoService(db, logger)
	linkService := service.NewLinkService(db, cfg.BackendURL, logger)
	webhookRouter := service.NewWebhookRouter(linkService, bot, logger)
	notifyService := service.NewNotifyService(db, db, bot, weather.New(), loc, logger)

	s := &Server{
		router:    chi.NewRouter(),
		cfg:       cfg,
		logger:    logger,
		db:        db,
		scheduler: scheduler.New(notifyService, loc, logger),
	}

	s.setupRoutes(
		handler.NewAuthHandler(lineLogin, authService, cfg.FrontendURL, logger),
		handler.NewTodoHandler(todoService, logger),
		handler.NewLinkHandler(linkService, cfg.LineBotBasicID, logger),
		handler.NewWebhookHandler(cfg.LineChannelSecret, webhookRouter, logger),
		handler.NewNotificationHandler(notifyService, logger),
		tokens,
	)
	return s, nil
}

func (s *Server) setupRoutes(
	authH *handler.AuthHandler,
	todoH *handler.TodoHandler,
	linkH *handler.LinkHandler,
	webhookH *handler.WebhookHandler,
	notifH *handler.NotificationHandler,
	tokens *auth.TokenService,
) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// Public surface: login flow, bot webhook, and the human-facing
	// link verification page.
	s.router.Get("/auth/line/login", authH.HandleLineLogin)
	s.router.Get("/auth/line/callback", authH.HandleLineCallback)
	s.router.Post("/auth/logout", authH.HandleLogout)
	s.router.Post("/webhook/line", webhookH.HandleWebhook)
	s.router.Get("/link/verify/{token}", linkH.HandleVerifyPage)

	// Authenticated API.
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/me", authH.HandleMe)
		r.Patch("/me/notification-time", authH.HandleNotificationTime)

		r.Get("/todos", todoH.HandleList)
		r.Post("/todos", todoH.HandleCreate)
		r.Patch("/todos/{id}", todoH.HandleSetStatus)
		r.Delete("/todos/{id}", todoH.HandleDelete)

		r.Post("/link/generate", linkH.HandleGenerate)
		r.Post("/notifications/send", notifH.HandleSend)
	})
}

// Start runs the HTTP server and the scheduler, then blocks until a
// shutdown signal or a server error. In-flight requests get 30 seconds
// to finish; the scheduler stops with the same context.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         s.cfg.HTTPAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	schedCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	go s.scheduler.Run(schedCtx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", s.cfg.HTTPAddr),
			slog.String("database", s.cfg.DBPath),
			slog.String("timezone", s.cfg.Timezone),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		stopScheduler()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
