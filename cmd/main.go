package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/mlorenzo/finanzas/internal/config"
	"github.com/mlorenzo/finanzas/internal/finanzas"
	httpapi "github.com/mlorenzo/finanzas/internal/httpapi/v1"
	"github.com/mlorenzo/finanzas/internal/programador"
	"github.com/mlorenzo/finanzas/internal/service/cambio"
	"github.com/mlorenzo/finanzas/internal/service/generador"
	"github.com/mlorenzo/finanzas/internal/storage/memory"
	pgstore "github.com/mlorenzo/finanzas/internal/storage/postgres"
)

// backend bundles the interfaces both stores satisfy so wiring below stays
// store-agnostic.
type backend interface {
	httpapi.Store
	generador.Repo
	generador.TxManager
	cambio.Repo
	cambio.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := buildLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	var store backend
	var ready func(ctx context.Context) error
	var closeFn func()

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		store = pg
		ready = pg.Ready
		closeFn = pg.Close
		logger.Info("storage backend: postgres")
	} else {
		mem := memory.New()
		if cfg.DevSeed {
			seedDev(mem, logger)
		}
		store = mem
		logger.Info("storage backend: memory")
	}

	rates, err := cambio.New(store, store, logger, cfg.RateAPIURL)
	if err != nil {
		logger.Error("failed to build rate service", "err", err)
		os.Exit(1)
	}
	gen := generador.New(store, store, rates, logger)

	if cfg.SchedulerEnabled {
		prog := programador.New(gen, rates, logger)
		go prog.Run(ctx)
	} else {
		logger.Info("scheduler disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpapi.New(store, gen, rates, ready, logger).Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("finanzas service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	if closeFn != nil {
		closeFn()
	}
}

// seedDev loads a user plus the catalog rows every gasto references, so the
// API is usable out of the box against the memory store.
func seedDev(store *memory.Store, l *slog.Logger) {
	user := finanzas.User{ID: uuid.New()}
	categoria := uuid.New()
	importancia := uuid.New()
	tipoPago := uuid.New()
	store.SeedUser(user)
	store.SeedCategoria(categoria)
	store.SeedImportancia(importancia)
	store.SeedTipoPago(tipoPago)
	l.Info("DEV seed (memory)",
		"user_id", user.ID.String(),
		"categoria_id", categoria.String(),
		"importancia_id", importancia.String(),
		"tipo_pago_id", tipoPago.String(),
	)
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR", "ERR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	if strings.ToLower(strings.TrimSpace(format)) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
