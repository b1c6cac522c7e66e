package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"queue-maintenance/internal/di"
	"queue-maintenance/internal/maintenance/config"
	"queue-maintenance/internal/shared/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.NewLogger()
	appLogger.Info("Application configuration loaded successfully",
		zap.String("document_store", cfg.Store.Backend),
		zap.String("static_dir", cfg.Server.StaticDir))

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	container := di.NewContainer(cfg, appLogger)
	err = container.Build(initCtx)
	cancel()
	if err != nil {
		appLogger.Fatal("Failed to initialize application", zap.Error(err))
	}

	container.Scheduler.Start()
	if cfg.Schedule.RunOnStart {
		appLogger.Info("Running reset job once at startup")
		container.Scheduler.TriggerAsync()
	}

	serverAddr := cfg.Server.Addr()
	appLogger.Info("Server is running on port " + cfg.Server.Port)

	// Start server in a goroutine for graceful shutdown
	serverShutdown := make(chan error, 1)
	go func() {
		serverShutdown <- container.App.Listen(serverAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverShutdown:
		if err != nil {
			appLogger.Error("Server failed to start", zap.Error(err))
		}
	case sig := <-quit:
		appLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := container.App.ShutdownWithContext(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := container.Close(shutdownCtx); err != nil {
		appLogger.Error("Failed to close container", zap.Error(err))
	}

	appLogger.Info("Application stopped gracefully")
}
