// zenn-assist - writing assistant backend for Zenn articles
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/ktsujino/zenn-assist/agent"
	"github.com/ktsujino/zenn-assist/api"
	"github.com/ktsujino/zenn-assist/config"
	"github.com/ktsujino/zenn-assist/llm"
	"github.com/ktsujino/zenn-assist/service"
	"github.com/ktsujino/zenn-assist/session"
	"github.com/ktsujino/zenn-assist/zenn"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("Starting server", "port", cfg.Port, "llm", cfg.LLMClient)

	ctx := context.Background()

	store, err := session.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close session store", "error", closeErr)
		}
	}()
	slog.Info("Database connected", "path", cfg.DBPath)

	suggestClient, err := llm.New(ctx, cfg, cfg.SuggestModel)
	if err != nil {
		slog.Error("Failed to initialize suggestion model client", "error", err)
		os.Exit(1)
	}
	searchClient, err := llm.New(ctx, cfg, cfg.SearchModel)
	if err != nil {
		slog.Error("Failed to initialize search model client", "error", err)
		os.Exit(1)
	}

	searcher := agent.NewWebSearchAgent(searchClient, cfg.SearchMaxUses)
	suggestAgent := agent.NewSuggestAgent(suggestClient, searcher, cfg.MaxTurns, cfg.ModelTimeout())
	suggestService := service.NewSuggestService(store, suggestAgent)

	files := zenn.NewFileService(cfg.ArticlesDir)
	runner := zenn.ExecRunner{}
	generator := zenn.NewGenerateService(files, ".", runner)
	publisher := zenn.NewPublishService(files, ".", runner)

	// Article writing is pinned to OpenAI regardless of the suggest backend.
	var writer *zenn.Writer
	if writerClient, err := llm.NewOpenAIClient(ctx, cfg.GenerateModel); err != nil {
		slog.Warn("AI article generation disabled", "error", err)
	} else {
		writer = zenn.NewWriter(writerClient)
	}

	handler := api.NewHandler(suggestService, store, generator, publisher, writer)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(time.Duration(cfg.RequestTimeout) * time.Second))
	handler.Routes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		slog.Info("Shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}
}
