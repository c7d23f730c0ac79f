package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"github.com/lu123321/counseling-app/config"
	"github.com/lu123321/counseling-app/internal/api"
	"github.com/lu123321/counseling-app/internal/collab"
	"github.com/lu123321/counseling-app/internal/db"
	"github.com/lu123321/counseling-app/internal/notification"
	"github.com/lu123321/counseling-app/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "counseling-app ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Fatalf("VAPID keys must be configured. Please generate them and add them to your config file.")
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	loc, err := time.LoadLocation(cfg.Practice.Timezone)
	if err != nil {
		logger.Fatalf("invalid practice timezone %q: %v", cfg.Practice.Timezone, err)
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventStore := store.NewGormStore(gormDB)
	logger.Println("event store initialized")

	clients := collab.NewDirectory(gormDB)
	sessions := collab.NewSessions(gormDB)

	// Reminder scanning runs in the background; delivery goes through
	// the web push worker pool.
	scanner := notification.NewScanner(cfg, eventStore)
	go scanner.Run(ctx)

	router := api.NewRouter(cfg, eventStore, clients, sessions, &webpushOptions, loc)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
