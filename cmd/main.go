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

	"github.com/arenapool/wager-system/config"
	"github.com/arenapool/wager-system/db"
	"github.com/arenapool/wager-system/events"
	"github.com/arenapool/wager-system/handlers"
	"github.com/arenapool/wager-system/live"
	"github.com/arenapool/wager-system/repositories"
	api "github.com/arenapool/wager-system/routes"
	"github.com/arenapool/wager-system/services"
	"github.com/arenapool/wager-system/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
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

	if err := db.EnsureSchema(context.Background(), dbConn); err != nil {
		logger.Error("failed to ensure database schema", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database schema ensured")

	// Архиватор отчётов о расчёте (Cloudflare R2). Опционален.
	var archiver *services.SettlementArchiver
	if cfg.R2AccountID != "" {
		uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
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
		archiver = services.NewSettlementArchiver(uploader)
		logger.Info("settlement archiver initialized")
	} else {
		logger.Info("settlement archiving disabled, R2 is not configured")
	}

	// Публикация событий в NATS JetStream. Опциональна.
	var publisher services.EventPublisher
	if cfg.NATSURL != "" {
		natsPublisher, err := events.NewPublisher(cfg.NATSURL)
		if err != nil {
			logger.Error("failed to connect to NATS", slog.Any("error", err))
			os.Exit(1)
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
		logger.Info("NATS publisher initialized", slog.String("url", cfg.NATSURL))
	} else {
		logger.Info("event publishing disabled, NATS_URL is not set")
	}

	// Инициализация WebSocket Hub
	wsHub := live.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	txManager := repositories.NewSQLTxManager(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	poolRepo := repositories.NewPostgresPoolRepository(dbConn)
	wagerRepo := repositories.NewPostgresWagerRepository(dbConn)
	claimRepo := repositories.NewPostgresClaimRepository(dbConn)
	balanceRepo := repositories.NewPostgresBalanceRepository(dbConn)
	settingsRepo := repositories.NewPostgresSettingsRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	authService := services.NewAuthService(userRepo, logger)
	registryService := services.NewRegistryService(
		txManager,
		tournamentRepo,
		poolRepo,
		settingsRepo,
		balanceRepo,
		userRepo,
		archiver,
		wsHub,
		publisher,
		logger,
	)
	ledgerService := services.NewLedgerService(
		txManager,
		tournamentRepo,
		poolRepo,
		wagerRepo,
		claimRepo,
		balanceRepo,
		wsHub,
		publisher,
		logger,
	)
	logger.Info("Services initialized")

	// Учётная запись authority при первом запуске
	if cfg.AuthorityEmail != "" {
		if _, err := authService.EnsureAuthority(context.Background(), cfg.AuthorityEmail, cfg.AuthorityPassword); err != nil {
			logger.Error("failed to ensure authority account", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("authority account ensured", slog.String("email", cfg.AuthorityEmail))
	}

	// Инициализация обработчиков HTTP
	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	tournamentHandler := handlers.NewTournamentHandler(registryService, ledgerService)
	wagerHandler := handlers.NewWagerHandler(ledgerService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, registryService)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		authHandler,
		tournamentHandler,
		wagerHandler,
		webSocketHandler,
		cfg.JWTSecretKey,
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
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

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
