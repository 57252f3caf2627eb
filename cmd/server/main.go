package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/grantgenius/grantgenius-backend/internal/ai"
	"github.com/grantgenius/grantgenius-backend/internal/config"
	"github.com/grantgenius/grantgenius-backend/internal/db"
	httpHandlers "github.com/grantgenius/grantgenius-backend/internal/http/handlers"
	httpRouter "github.com/grantgenius/grantgenius-backend/internal/http/router"
	"github.com/grantgenius/grantgenius-backend/internal/logger"
	"github.com/grantgenius/grantgenius-backend/internal/metrics"
	"github.com/grantgenius/grantgenius-backend/internal/repository"
	"github.com/grantgenius/grantgenius-backend/internal/service"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logLevel := cfg.LogLevel
	if !cfg.IsProduction() && logLevel == "info" {
		logLevel = "debug"
	}
	logger.Init(logLevel, cfg.Env)

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL, db.DefaultPoolOptions())
	if err != nil {
		logger.Log.WithError(err).Fatal("main: ошибка подключения к базе")
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		logger.Log.WithError(err).Fatal("main: ошибка миграций")
	}

	// Метрики.
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	aiClient := ai.NewClient(ai.Options{
		BaseURL: cfg.AIBaseURL,
		APIKey:  cfg.AIAPIKey,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
	})

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	grantRepo := repository.NewGrantRepository(dbConn)
	proposalRepo := repository.NewProposalRepository(dbConn)

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager, cfg.AdminEmails)
	grantService := service.NewGrantService(grantRepo)
	proposalService := service.NewProposalService(proposalRepo, grantRepo, aiClient, appMetrics, cfg.AITimeout)

	engine := httpRouter.SetupRouter(httpRouter.Deps{
		Config:          cfg,
		Tokens:          tokenManager,
		Metrics:         appMetrics,
		Gatherer:        registry,
		AuthHandler:     httpHandlers.NewAuthHandler(authService),
		GrantHandler:    httpHandlers.NewGrantHandler(grantService),
		ProposalHandler: httpHandlers.NewProposalHandler(proposalService),
		HealthHandler:   httpHandlers.NewHealthHandler(dbConn),
	})

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("main: ошибка остановки http сервера")
		}
	}()

	logger.Log.WithFields(logrus.Fields{
		"port":     cfg.HTTPPort,
		"env":      cfg.Env,
		"ai_model": aiClient.Model(),
	}).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.WithError(err).Fatal("main: сервер завершился с ошибкой")
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
