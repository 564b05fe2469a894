package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go-chat-hub/internal/api"
	"go-chat-hub/internal/audit"
	"go-chat-hub/internal/config"
	"go-chat-hub/internal/storage"
	"go-chat-hub/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/mama165/sdk-go/logs"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the server and blocks until SIGINT or SIGTERM.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *gorm.DB
	if cfg.AuditEnabled() {
		if db, err = storage.Connect(cfg.AuditDBPath); err != nil {
			return err
		}
		defer func() {
			log.Info("Closing audit database...")
			_ = storage.Close(db)
		}()
	}

	// Background workers stop on their own context, after the hub, so the
	// audit queue is flushed before the database closes.
	workersCtx, stopWorkers := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	defer func() {
		stopWorkers()
		workers.Wait()
	}()

	hubOpts := []websocket.HubOption{websocket.WithHistoryLimit(cfg.HistoryLimit)}

	var auditService *audit.AuditService
	if db != nil {
		auditService = audit.NewAuditService(db, log, cfg.AuditQueue)
		hubOpts = append(hubOpts, websocket.WithObserver(auditService))
		workers.Add(1)
		go func() {
			defer workers.Done()
			auditService.Run(workersCtx)
		}()
		log.Info("Audit log enabled", "path", cfg.AuditDBPath)
	}

	hub := websocket.NewHub(log, hubOpts...)

	engine := api.NewEngine(log)
	router := api.NewRouter(hub, auditService, cfg, log)
	router.RegisterRoutes(engine)
	if limiter := router.Limiter(); limiter != nil {
		workers.Add(1)
		go func() {
			defer workers.Done()
			limiter.Run(workersCtx)
		}()
	}

	server := api.NewServer(cfg.Addr(), engine, log)
	serveErr := server.ListenAndServe(ctx, cfg.ShutdownTimeout)

	// Closing the hub sends every client a close frame.
	hub.Close()
	if serveErr != nil {
		return serveErr
	}
	log.Info("Program stopped cleanly")
	return nil
}
