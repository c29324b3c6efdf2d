package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finance-service/internal/config"
	"finance-service/internal/server"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env (optional)
	if err := godotenv.Load(); err != nil {
		log.Println("Finance: No .env file found, relying on system env vars")
	}

	// Load config
	cfg := config.Load()

	// Init server
	srv, err := server.NewFinanceServer(cfg)
	if err != nil {
		log.Fatalf("failed to init finance server: %v", err)
	}

	// Run server
	errCh := make(chan error, 1)
	go func() {
		log.Printf("🌍 Finance service starting on %s", cfg.HTTPAddr)
		errCh <- srv.Start()
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Println("🛑 Finance service shutting down gracefully...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Finance service failed: %v", err)
		}
	}
}
