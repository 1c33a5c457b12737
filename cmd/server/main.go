package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/edumesh/liveclass/internal/channel"
	"github.com/edumesh/liveclass/internal/config"
	"github.com/edumesh/liveclass/internal/logging"
	"github.com/edumesh/liveclass/internal/server"
	"github.com/edumesh/liveclass/internal/store"
)

func main() {
	// Absent .env files are fine; the environment wins either way.
	_ = godotenv.Load()
	logging.Init()

	cfg := config.LoadServer()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rooms, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("open room store", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	hub := channel.NewHub()
	go hub.Run(ctx)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.New(hub, rooms, []byte(cfg.TokenSecret)).Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown", "err", err)
		}
	}()

	slog.Info("relay server listening", "addr", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

// openStore picks Postgres when DATABASE_URL is set, in-memory otherwise.
func openStore(ctx context.Context, cfg *config.Server) (store.Rooms, func(), error) {
	if cfg.DatabaseURL == "" {
		slog.Info("using in-memory room store")
		return store.NewMemory(), func() {}, nil
	}

	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("using postgres room store")
	return pg, pg.Close, nil
}
