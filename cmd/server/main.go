package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aliasflow/alias-game-backend/internal/auth"
	"github.com/aliasflow/alias-game-backend/internal/config"
	"github.com/aliasflow/alias-game-backend/internal/directory"
	"github.com/aliasflow/alias-game-backend/internal/httpapi"
	"github.com/aliasflow/alias-game-backend/internal/room"
	"github.com/aliasflow/alias-game-backend/internal/stats"
	"github.com/aliasflow/alias-game-backend/internal/words"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *stats.Store
	if cfg.DatabaseURL != "" {
		store, err = stats.Open(cfg.DatabaseURL, log)
		if err != nil {
			log.Fatal("open statistics store", zap.Error(err))
		}
	} else {
		log.Warn("DATABASE_URL not set, statistics persistence disabled")
	}

	dir := directory.New(ctx, words.NewSupply(), room.Deps{
		Log:          log,
		Stats:        store,
		WordBankSize: cfg.WordBankSize,
	}, directory.Config{
		IdleTimeout:   cfg.RoomIdleTimeout,
		SweepInterval: cfg.SweepInterval,
	}, log)

	verifier := auth.NewVerifier(cfg.JWTSecret)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(dir, verifier, store, log),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
	log.Info("shut down cleanly")
}
