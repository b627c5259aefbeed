package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/prudhvinik1/possync/internal/api"
	"github.com/prudhvinik1/possync/internal/app"
	"github.com/prudhvinik1/possync/internal/config"
	"github.com/prudhvinik1/possync/internal/logger"
	"github.com/prudhvinik1/possync/internal/services"
)

func main() {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.InitLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Log

	agent, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize agent", zap.Error(err))
	}
	defer agent.Close()

	go agent.Monitor.Run(ctx)

	sessions := services.NewSessionManager(agent.Engine, agent.Presence, services.SessionConfig{
		SyncSchedule:      cfg.SyncSchedule,
		HeartbeatInterval: cfg.HeartbeatInterval,
	}, log)
	defer sessions.Close()

	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry)
	handler := api.NewHandler(sessions, tokens, agent.Presence, log)

	// Start Server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: handler.Routes(),
	}

	// graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
		stop()
	}()

	log.Info("Starting server", zap.String("port", cfg.ServerPort), zap.String("local_store", cfg.LocalStoreDriver))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("Server error", zap.Error(err))
	}

	log.Info("Server stopped gracefully")
}
