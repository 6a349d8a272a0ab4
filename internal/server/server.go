// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the composition root: the entire dependency chain is
// assembled here, in one place, rather than scattered across the codebase:
//
//	sqlite.DB → services (board, invite, onboarding, auth) → handlers → routes
//
// Each layer only receives what it needs — services get repository
// interfaces, handlers get services, and nothing below the handler layer
// knows HTTP exists.
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

	"github.com/mlecanu/ilconto/internal/auth"
	"github.com/mlecanu/ilconto/internal/handler"
	"github.com/mlecanu/ilconto/internal/middleware"
	"github.com/mlecanu/ilconto/internal/notify"
	sqliteRepo "github.com/mlecanu/ilconto/internal/repository/sqlite"
	"github.com/mlecanu/ilconto/internal/service"
)

// Config holds server configuration, populated from the environment by
// cmd/server.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string
	FrontURL  string // frontend origin for activation links
	SMTP      notify.SMTPConfig
}

// Server owns the router and the resources that need closing on shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB // owned by the server, closed on shutdown
}

// New creates a Server with the full dependency graph wired up.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware, builds the services and handlers, and
// binds them to routes.
//
// MIDDLEWARE ORDER MATTERS — it executes in the order added:
// RequestID → RealIP → Recoverer → request logging.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	// Onboarding notices go out by email when SMTP is configured, otherwise
	// to the log so the flow still works in development.
	var notifier notify.Notifier
	if s.config.SMTP.Host != "" {
		notifier = notify.NewSMTPNotifier(s.config.SMTP, s.logger)
	} else {
		s.logger.Warn("SMTP not configured — onboarding notices go to the log")
		notifier = notify.NewLogNotifier(s.logger)
	}

	boardService := service.NewBoardService(s.db, s.logger)
	inviteService := service.NewInviteService(s.db, boardService, notifier, s.config.FrontURL, s.logger)
	onboardingService := service.NewOnboardingService(s.db, passwords, s.logger)
	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	boardHandler := handler.NewBoardHandler(boardService, inviteService, authService, s.logger)
	onboardingHandler := handler.NewOnboardingHandler(onboardingService, authService, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		// Session endpoints — no auth required to obtain a session.
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)

		// Activation — hash-gated, not session-gated: invited users have no
		// session yet.
		r.Post("/activate/{identityID}", onboardingHandler.HandleActivate)

		// Everything below requires a valid session cookie.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", authHandler.HandleMe)

			r.Get("/boards", boardHandler.HandleList)
			r.Post("/boards", boardHandler.HandleCreate)
			r.Get("/boards/{boardID}", boardHandler.HandleGet)
			r.Put("/boards/{boardID}", boardHandler.HandleUpdate)
			r.Delete("/boards/{boardID}", boardHandler.HandleDelete)

			r.Get("/boards/{boardID}/members", boardHandler.HandleListMembers)
			r.Post("/boards/{boardID}/members", boardHandler.HandleAddMember)
			r.Get("/boards/{boardID}/members/{memberID}", boardHandler.HandleGetMember)
			r.Put("/boards/{boardID}/members/{memberID}", boardHandler.HandleUpdateMember)
			r.Delete("/boards/{boardID}/members/{memberID}", boardHandler.HandleRemoveMember)

			r.Post("/identities/{identityID}/verify-email", onboardingHandler.HandleVerifyEmail)
		})
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown:
//  1. stop accepting new connections
//  2. wait up to 30s for in-flight requests
//  3. close the database (flushes WAL, releases the file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
