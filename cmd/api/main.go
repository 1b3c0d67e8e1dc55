package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"scanpos/internal/config"
	"scanpos/internal/database"
	"scanpos/internal/logger"
	"scanpos/internal/server"
)

func gracefulShutdown(httpServer *http.Server, app *server.Server, zapLogger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	zapLogger.Info("Shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the requests it is currently handling.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := app.Shutdown(); err != nil {
		zapLogger.Error("Failed to release resources", zap.Error(err))
	}

	zapLogger.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete.
	done <- true
}

func main() {
	cfg := config.Load()

	zapLogger, err := logger.New(cfg.Server.Env)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	db := database.New()

	health := db.Health()
	if health["status"] != "up" {
		zapLogger.Fatal("Database is not reachable", zap.String("error", health["error"]))
	}

	if err := database.RunMigrations(db.DB(), "migrations", zapLogger); err != nil {
		zapLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	httpServer, app, err := server.NewServer(cfg, db, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to build server", zap.Error(err))
	}

	// Create a done channel to signal when the shutdown is complete.
	done := make(chan bool, 1)

	go gracefulShutdown(httpServer, app, zapLogger, done)

	zapLogger.Info("Starting server",
		zap.String("addr", httpServer.Addr),
		zap.String("env", cfg.Server.Env),
	)

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete.
	<-done
}
