package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benallfree/vibescale-sub000/internal/db"
	"github.com/benallfree/vibescale-sub000/internal/hub"
	"github.com/benallfree/vibescale-sub000/internal/logger"
	"github.com/benallfree/vibescale-sub000/internal/repository"
	"github.com/benallfree/vibescale-sub000/internal/room"
	"github.com/benallfree/vibescale-sub000/internal/server"
	"github.com/benallfree/vibescale-sub000/internal/telemetry"
)

func main() {
	ctx := context.Background()

	// Initialize telemetry
	shutdown, err := telemetry.InitOtel()
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	logger.Init()

	// Initialize Redis; nil means no store is configured and players live
	// purely in-memory.
	var players repository.PlayerRepository = repository.NoopPlayerRepository{}
	rdb, err := db.NewRedisClient(ctx)
	if err != nil {
		log.Fatalf("failed to initialize redis: %v", err)
	}
	if rdb != nil {
		players = repository.NewPlayerRepository(rdb)
		slog.Info("player persistence enabled")
	}

	// Initialize the SQLite event journal, also optional.
	var journal repository.EventJournal = repository.NoopEventJournal{}
	journalDB, err := db.OpenJournalDB()
	if err != nil {
		log.Fatalf("failed to open journal db: %v", err)
	}
	if journalDB != nil {
		journal, err = repository.NewEventJournal(journalDB)
		if err != nil {
			log.Fatalf("failed to initialize event journal: %v", err)
		}
		slog.Info("event journal enabled")
	}

	// Create the hub and the Gin-based server shell.
	h := hub.NewHub(room.DefaultConfig(), players, journal)
	srv := server.NewServer(h)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv.Engine(),
	}

	go func() {
		slog.Info("http server started", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	h.Shutdown()

	slog.Info("server exiting")
}
