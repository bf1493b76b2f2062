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

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/config"
	"github.com/Dosada05/bracket-engine/db"
	"github.com/Dosada05/bracket-engine/handlers"
	"github.com/Dosada05/bracket-engine/repositories"
	api "github.com/Dosada05/bracket-engine/routes"
	"github.com/Dosada05/bracket-engine/services"
	"github.com/Dosada05/bracket-engine/storage"
	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("db_driver", cfg.DatabaseDriver),
		slog.Int("build_concurrency", cfg.BuildConcurrency),
	)

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseDriver, cfg.DatabaseURL, 5*time.Second)
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

	if cfg.RunMigrations {
		if err := db.Migrate(dbConn, cfg.DatabaseDriver, cfg.DatabaseURL); err != nil {
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Архив итогов в Cloudflare R2, если настроен
	var archiver storage.FileUploader
	if cfg.R2.Enabled() {
		archiver, err = storage.NewCloudflareR2Uploader(ctx, cfg.R2)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized", slog.String("bucket", cfg.R2.BucketName))
	} else {
		logger.Info("results archive disabled")
	}

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub(logger)
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		wsHub.Run(ctx)
	}()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	eventRepo := repositories.NewEventRepository(dbConn)
	registrationRepo := repositories.NewRegistrationRepository(dbConn)
	bracketRepo := repositories.NewBracketRepository(dbConn)
	matchRepo := repositories.NewMatchRepository(dbConn)
	resultRepo := repositories.NewTournamentResultRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	bracketService := services.NewBracketService(
		dbConn,
		eventRepo,
		registrationRepo,
		bracketRepo,
		matchRepo,
		cfg.BuildConcurrency,
		logger,
	)
	matchService := services.NewMatchService(dbConn, matchRepo, bracketRepo, wsHub, logger)
	placementService := services.NewPlacementService(
		dbConn,
		eventRepo,
		bracketRepo,
		matchRepo,
		resultRepo,
		wsHub,
		archiver,
		logger,
	)
	logger.Info("Services initialized")

	var sweeper *services.PlacementSweeper
	if cfg.PlacementSweepSpec != "" {
		sweeper, err = services.NewPlacementSweeper(cfg.PlacementSweepSpec, placementService, logger)
		if err != nil {
			logger.Error("failed to create placement sweeper", slog.Any("error", err))
			os.Exit(1)
		}
		sweeper.Start()
	}

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Brackets:  handlers.NewBracketHandler(bracketService, placementService),
		Matches:   handlers.NewMatchHandler(matchService),
		WebSocket: handlers.NewWebSocketHandler(wsHub, cfg.CORSAllowedOrigins, logger),
	}, api.Options{
		JWTSecret:      cfg.JWTSecretKey,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
		Ready:          dbConn.PingContext,
	})
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	exitCode := 0
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			exitCode = 1
		}
		stop()
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("failed to force close server", slog.Any("error", closeErr))
		}
		exitCode = 1
	}

	if sweeper != nil {
		sweeper.Stop(shutdownCtx)
	}

	// Hub закрывает всех websocket-клиентов после отмены ctx.
	select {
	case <-hubDone:
	case <-shutdownCtx.Done():
		logger.Warn("websocket hub did not stop in time")
	}

	logger.Info("application exited")
	if exitCode != 0 {
		dbConn.Close()
		os.Exit(exitCode)
	}
}
