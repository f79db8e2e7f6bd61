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

	_ "github.com/lib/pq"

	"github.com/match-developers/matchplay/config"
	"github.com/match-developers/matchplay/db"
	"github.com/match-developers/matchplay/events"
	"github.com/match-developers/matchplay/handlers"
	"github.com/match-developers/matchplay/middleware"
	"github.com/match-developers/matchplay/repositories"
	api "github.com/match-developers/matchplay/routes"
	"github.com/match-developers/matchplay/services"
	"github.com/match-developers/matchplay/storage"
	"github.com/match-developers/matchplay/workers"
)

const eventBufferSize = 256

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Object storage for final standings archives is optional.
	var objectStore storage.ObjectStore
	if cfg.R2AccountID != "" {
		objectStore, err = storage.NewR2ObjectStore(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 object store", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 standings archive enabled")
	} else {
		logger.Info("standings archive disabled: R2 is not configured")
	}

	wsHub := events.NewHub(logger)
	go wsHub.Run()
	defer wsHub.Close()

	dispatcher := events.NewDispatcher(logger, eventBufferSize, wsHub)
	go dispatcher.Run()
	defer dispatcher.Close()
	logger.Info("event dispatcher started")

	competitionRepo := repositories.NewPostgresCompetitionRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	standingRepo := repositories.NewPostgresStandingRepository(dbConn)
	methodRepo := repositories.NewPostgresWinningMethodRepository(dbConn)
	logger.Info("repositories initialized")

	txBeginner := services.NewSQLTxBeginner(dbConn)
	rosterService := services.NewRosterService(teamRepo)
	scheduleService := services.NewScheduleService(txBeginner, competitionRepo, matchRepo, rosterService, logger)
	progressTracker := services.NewProgressService(competitionRepo, matchRepo, standingRepo, logger)
	archiver := services.NewStandingsArchiver(competitionRepo, standingRepo, objectStore, logger)
	matchService := services.NewMatchService(txBeginner, matchRepo, teamRepo, competitionRepo, progressTracker, dispatcher, archiver, logger)
	competitionService := services.NewCompetitionService(txBeginner, competitionRepo, teamRepo, matchRepo, standingRepo, methodRepo, dispatcher, archiver, logger)
	logger.Info("services initialized")

	deadlineWorker := workers.NewDeadlineWorker(competitionRepo, scheduleService, logger)
	if err := deadlineWorker.Start(cfg.DeadlineSweepSpec); err != nil {
		logger.Error("failed to start deadline worker", slog.Any("error", err))
		os.Exit(1)
	}
	defer deadlineWorker.Stop()

	auth := middleware.NewAuthenticator(cfg.JWTSecretKey)
	router := api.InitRoutes(api.Handlers{
		Competition: handlers.NewCompetitionHandler(competitionService, scheduleService, matchService),
		Match:       handlers.NewMatchHandler(matchService),
		WebSocket:   handlers.NewWebSocketHandler(wsHub, competitionService, logger),
	}, auth)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
