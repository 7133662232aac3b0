package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/courtside/config"
	"github.com/Dosada05/courtside/db"
	"github.com/Dosada05/courtside/handlers"
	"github.com/Dosada05/courtside/repositories"
	"github.com/Dosada05/courtside/routes"
	"github.com/Dosada05/courtside/scheduling"
	"github.com/Dosada05/courtside/services"
	"github.com/Dosada05/courtside/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("storage_driver", cfg.StorageDriver))

	var (
		dbConn         *sql.DB
		tournamentRepo repositories.TournamentRepository
		matchRepo      repositories.MatchRepository
		courtRepo      repositories.CourtRepository
		teamRepo       repositories.TeamRepository
	)
	switch cfg.StorageDriver {
	case config.StorageDriverPostgres:
		dbConn, err = db.Connect(cfg.DatabaseURL, 5*time.Second)
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := dbConn.Close(); err != nil {
				logger.Error("failed to close database connection", slog.Any("error", err))
			}
		}()
		tournamentRepo = repositories.NewPostgresTournamentRepository(dbConn)
		matchRepo = repositories.NewPostgresMatchRepository(dbConn)
		courtRepo = repositories.NewPostgresCourtRepository(dbConn)
		teamRepo = repositories.NewPostgresTeamRepository(dbConn)
		logger.Info("database connection established")
	case config.StorageDriverMemory:
		mem := repositories.NewMemoryDB()
		tournamentRepo = mem.Tournaments()
		matchRepo = mem.Matches()
		courtRepo = mem.Courts()
		teamRepo = mem.Teams()
		logger.Warn("using in-memory storage; all state is lost on restart")
	}

	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("R2 not configured; logo upload disabled")
	}

	wsHub := scheduling.NewHub()
	go wsHub.Run()

	summaryService := services.NewSummaryService(tournamentRepo, matchRepo, courtRepo)
	schedulingService := services.NewSchedulingService(
		matchRepo, courtRepo, tournamentRepo, teamRepo,
		summaryService, wsHub, logger,
	)
	courtService := services.NewCourtService(courtRepo, tournamentRepo, summaryService, wsHub, logger)
	tournamentService := services.NewTournamentService(
		tournamentRepo, matchRepo, courtRepo, teamRepo,
		schedulingService, uploader, logger,
	)

	tournamentHandler := handlers.NewTournamentHandler(tournamentService)
	courtHandler := handlers.NewCourtHandler(courtService)
	schedulingHandler := handlers.NewSchedulingHandler(schedulingService, summaryService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, summaryService)

	router := chi.NewRouter()
	routes.SetupRoutes(router, routes.Config{
		JWTSecret:          []byte(cfg.JWTSecretKey),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}, tournamentHandler, courtHandler, schedulingHandler, webSocketHandler)
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
