// Package main запускает HTTP-сервер сервиса QuickDeliver.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mmeshcher/quickdeliver/internal/account"
	"github.com/mmeshcher/quickdeliver/internal/assistant"
	"github.com/mmeshcher/quickdeliver/internal/config"
	"github.com/mmeshcher/quickdeliver/internal/handler"
	"github.com/mmeshcher/quickdeliver/internal/middleware"
	"github.com/mmeshcher/quickdeliver/internal/repository"
	"github.com/mmeshcher/quickdeliver/internal/session"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	// Переменные из .env не перекрывают уже заданные в окружении.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		sugar.Warnw("load .env error", "error", err.Error())
	}

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI, logger.Named("repository"))
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Без БД сервис продолжает работу: вход доступен только для демо-учётной записи.
	migrateCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := repo.Migrate(migrateCtx); err != nil {
		sugar.Warnw("database unavailable, running in fallback mode", "error", err.Error())
	}
	cancel()

	accounts := account.NewRepository(repo, logger.Named("account"))
	sessions := session.NewManager(accounts, logger.Named("session"), session.Options{
		TTL:   cfg.SessionTTL,
		Rate:  rate.Limit(cfg.AssistantRate),
		Burst: cfg.AssistantBurst,
	})

	assistantClient := assistant.NewClient(assistant.Config{
		BaseURL: cfg.OpenRouter.APIURL,
		APIKey:  cfg.OpenRouter.APIKey,
		Model:   cfg.OpenRouter.Model,
		SiteURL: cfg.OpenRouter.SiteURL,
		AppName: cfg.OpenRouter.AppName,
	}, logger.Named("assistant"))
	if !assistantClient.Configured() {
		sugar.Warn("OPENROUTER_API_KEY is not set, assistant replies will report missing configuration")
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.SessionSecret, sessions)
	h := handler.NewHandler(accounts, sessions, assistantClient, repo, logger, authMiddleware)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting quickdeliver server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
