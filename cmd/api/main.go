// Package main is the entry point for the fleet journal API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/pkordes/fleet-journal/internal/config"
	"github.com/pkordes/fleet-journal/internal/handler"
	"github.com/pkordes/fleet-journal/internal/middleware"
	"github.com/pkordes/fleet-journal/internal/repo"
	"github.com/pkordes/fleet-journal/internal/service"
	"github.com/pkordes/fleet-journal/migrations"
	"github.com/pkordes/fleet-journal/spec"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Storage ----------------------------------------------------------
	ctx := context.Background()
	journalRepo, closeRepo, err := openJournalRepo(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to open journal storage", "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	// --- Service ----------------------------------------------------------
	journal := service.NewJournalService(journalRepo, service.Options{
		KeyColumn:   cfg.KeyColumn,
		ClearPolicy: cfg.ClearPolicy,
		Location:    cfg.Location,
		Logger:      logger,
	})
	if cfg.RosterPath != "" {
		if _, err := journal.LoadRosterFile(ctx, cfg.RosterPath); err != nil {
			slog.Error("failed to load roster", "path", cfg.RosterPath, "error", err)
			os.Exit(1)
		}
	}

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → body limit.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxUploadBytes))

	server := handler.NewServer(journal,
		handler.WithOpenAPI(spec.OpenAPI),
		handler.WithLogger(logger),
	)
	r.Mount("/", server.Routes())

	// --- HTTP Server ------------------------------------------------------
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openJournalRepo returns the Postgres repo, migrated to the latest schema,
// when DATABASE_URL is set, and the CSV file repo otherwise.
func openJournalRepo(ctx context.Context, cfg config.Config, logger *slog.Logger) (repo.JournalRepo, func(), error) {
	opts := repo.Options{KeyColumn: cfg.KeyColumn, Location: cfg.Location, Logger: logger}

	if !cfg.UsesPostgres() {
		logger.Info("journal stored in file", "path", cfg.JournalPath)
		return repo.NewFileJournalRepo(cfg.JournalPath, opts), func() {}, nil
	}

	// New() does not open connections immediately; the ping below does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	// goose needs database/sql; borrow a connection from the pool.
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	applied, err := migrations.Up(ctx, db)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Info("journal stored in postgres", "migrations_applied", applied)

	return repo.NewPostgresJournalRepo(pool, opts), pool.Close, nil
}
