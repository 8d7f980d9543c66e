// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lsqs/lsqs/internal/config"
	"github.com/lsqs/lsqs/internal/protocol"
	"github.com/lsqs/lsqs/internal/queue"
	"github.com/lsqs/lsqs/internal/reaper"
	"github.com/lsqs/lsqs/internal/store"
	"github.com/lsqs/lsqs/internal/waitregistry"
)

func main() {
	configPath := flag.String("config", "", "Path to bootstrap configuration file")
	dbPath := flag.String("db", "./lsqs.db", "Path to the sqlite database file")
	reapInterval := flag.Int("reap-interval", 1, "Background reaper tick interval, in seconds")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	var cfg *config.Config
	if *configPath != "" {
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalw("failed to load config", "error", err)
		}
		log.Infow("loaded configuration", "path", *configPath, "queues", len(cfg.Queues))
	}

	path := *dbPath
	interval := *reapInterval
	if cfg != nil {
		if cfg.Server.DBPath != "" {
			path = cfg.Server.DBPath
		}
		if cfg.Server.ReapInterval > 0 {
			interval = cfg.Server.ReapInterval
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, path)
	if err != nil {
		log.Fatalw("failed to open storage layer", "error", err, "path", path)
	}
	defer db.Close()

	st := store.New(db, log)
	waits := waitregistry.New()
	svc := queue.New(st, waits, log)

	if cfg != nil {
		if err := config.BootstrapQueues(ctx, svc, cfg); err != nil {
			log.Fatalw("failed to bootstrap queues", "error", err)
		}
		log.Infow("bootstrapped queues", "count", len(cfg.Queues))
	}

	rp := reaper.New(st, waits, log, time.Duration(interval)*time.Second)
	go rp.Run(ctx)

	port := os.Getenv("PORT")
	if port == "" {
		port = "9324" // default SQS port for local development, matching the teacher
	}
	if cfg != nil && cfg.Server.Port > 0 && os.Getenv("PORT") == "" {
		port = strconv.Itoa(cfg.Server.Port)
	}

	router := protocol.NewRouter(svc, log)
	httpServer := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Infow("starting lsqs", "port", port, "db", path)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalw("server failed", "error", err)
	}
}
