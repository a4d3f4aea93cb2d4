package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scrimlol/scrim-backend/internal/chat"
	"github.com/scrimlol/scrim-backend/internal/config"
	"github.com/scrimlol/scrim-backend/internal/coordinator"
	"github.com/scrimlol/scrim-backend/internal/httpapi"
	"github.com/scrimlol/scrim-backend/internal/identity"
	"github.com/scrimlol/scrim-backend/internal/store"
)

func main() {
	cfg := config.Load()

	var logger *zap.Logger
	var err error
	if cfg.Env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sink chat.MessageSink = chat.NopSink{}
	if cfg.DatabaseURL != "" {
		archive, err := store.NewArchive(cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("archive init failed", zap.Error(err))
		}
		defer archive.Close()
		sink = archive
	} else {
		logger.Info("no DATABASE_URL, message archive disabled")
	}

	ids := identity.NewStatic()
	reg := chat.NewRegistry(ctx, sink, logger)
	defer reg.Close()
	coord := coordinator.New(ctx, logger)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(reg, coord, ids, logger),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// Wait-time bookkeeping: one tick per second across the queue, every
	// slot, and every waiting list.
	g.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				coord.Inbox() <- coordinator.Tick{}
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
