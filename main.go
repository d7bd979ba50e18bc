package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andi/docconvert/backend/api"
	"github.com/andi/docconvert/backend/config"
	"github.com/andi/docconvert/backend/database"
	"github.com/andi/docconvert/backend/localstore"
	"github.com/andi/docconvert/backend/pool"
	"github.com/andi/docconvert/backend/publisher"
	"github.com/andi/docconvert/backend/registry"
	"github.com/andi/docconvert/backend/storage"
	"github.com/andi/docconvert/backend/sweeper"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "./config/config.yaml"
	}

	cfg, err := config.LoadFromEnv(cfgPath)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup logging
	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(level)
	}
	if err := os.MkdirAll(cfg.Logging.Dir, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}
	logFile, err := os.OpenFile(cfg.Logging.AppLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer logFile.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, logFile))

	log.Info("=== DocConvert Starting ===")

	// Initialize local staging store
	store, err := localstore.New(cfg.Storage.UploadDir, cfg.Storage.ConvertedDir, log)
	if err != nil {
		log.Fatalf("Failed to initialize local store: %v", err)
	}
	log.Info("Local store initialized")

	// Initialize conversion history database
	var history *database.HistoryRepo
	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Warnf("Conversion history disabled: %v", err)
	} else {
		defer db.Close()
		history = database.NewHistoryRepo(db)
		log.Info("Conversion history database initialized")
	}

	// Connect to the object store; a failure degrades uploads, not conversion
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	gateway := storage.New(startupCtx,
		cfg.Minio.Endpoint,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.Bucket,
		cfg.Minio.Secure,
		log,
	)
	cancelStartup()

	// Task registry and worker pool
	reg := registry.New()
	workers := pool.New(
		cfg.Converter.Workers,
		cfg.Converter.QueueSize,
		cfg.Converter.SofficePath,
		cfg.Converter.Timeout,
		log,
	)

	// Result publisher
	var historian publisher.Historian
	if history != nil {
		historian = history
	}
	pub := publisher.New(reg, store, gateway, historian, log)

	// Retention sweeper
	sweep := sweeper.New(reg, store,
		cfg.Storage.LocalTTL,
		cfg.Sweeper.Interval,
		cfg.Sweeper.ShutdownGrace,
		log,
	)
	sweep.Start()

	// Initialize API server
	server := api.New(api.Options{
		Registry:  reg,
		Pool:      workers,
		Publisher: pub,
		Store:     store,
		Gateway:   gateway,
		History:   history,
		KeepLocal: cfg.Storage.KeepLocal,
		LogDir:    cfg.Logging.Dir,
		Logger:    log,
	})
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		fmt.Printf("DocConvert server is running on http://%s\n", addr)
		if err := server.Start(addr); err != nil {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		log.Fatalf("Server error: %v", err)
	case sig := <-quit:
		log.Infof("Received signal: %v", sig)
		log.Info("Shutting down gracefully...")

		log.Info("Stopping HTTP server...")
		if err := server.Shutdown(); err != nil {
			log.Errorf("Error shutting down server: %v", err)
		}

		log.Info("Stopping retention sweeper...")
		sweep.Stop()

		log.Info("Closing worker pool...")
		workers.Close()

		log.Info("Shutdown complete")
	}
}
