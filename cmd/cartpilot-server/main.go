// Package main provides the REST server for cartpilot.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cartpilot/internal/catalog"
	"cartpilot/internal/chat"
	"cartpilot/internal/config"
	"cartpilot/internal/embedding"
	"cartpilot/internal/llm"
	"cartpilot/internal/recommend"
	"cartpilot/internal/server"
	"cartpilot/internal/vectorstore/qdrant"
)

func main() {
	cfgFile := flag.String("config", "", "config file (YAML)")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg := config.Load()
	if *cfgFile != "" {
		if err := config.LoadFile(*cfgFile, &cfg); err != nil {
			slog.Error("failed to load config file", "file", *cfgFile, "error", err)
			os.Exit(1)
		}
	}

	logger, closeLogger := config.NewLogger(&cfg)
	slog.SetDefault(logger)
	defer func() {
		if err := closeLogger(); err != nil {
			slog.Error("failed to close log file", "error", err)
		}
	}()

	slog.Info("starting cartpilot-server", "addr", cfg.ListenAddr, "collection", cfg.Collection)

	store := qdrant.New(qdrant.Config{URL: cfg.QdrantURL, APIKey: cfg.QdrantAPIKey})

	dense, err := embedding.NewDense(cfg)
	if err != nil {
		slog.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}
	model, err := llm.NewModel(cfg)
	if err != nil {
		slog.Error("failed to create model", "error", err)
		os.Exit(1)
	}

	cat := catalog.New(store, dense, embedding.NewBM25())
	engine := chat.NewEngine(cat, model, cfg.Collection, nil)
	recommender := recommend.NewEngine(cat, model, cfg.Collection)

	srv := server.New(cat, engine, recommender, chat.NewMemoryStore(), cfg.Collection)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second, // Long for LLM responses
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
