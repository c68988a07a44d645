package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eretz-ir/backend/internal/ai"
	"github.com/eretz-ir/backend/internal/config"
	"github.com/eretz-ir/backend/internal/httpapi"
	"github.com/eretz-ir/backend/internal/hub"
	"github.com/eretz-ir/backend/internal/lobby"
	"github.com/eretz-ir/backend/internal/notify"
	"github.com/eretz-ir/backend/internal/store"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		st = pg
		log.Info("using postgres persistence")
	} else {
		st = store.NewMemory()
		log.Warn("DATABASE_URL not set, career stats will not survive restarts")
	}

	var notifier notify.Notifier
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rn, err := notify.NewRedis(redis.NewClient(opts), log)
		if err != nil {
			return err
		}
		defer rn.Close()
		notifier = rn
		log.Info("using redis notifications")
	} else {
		notifier = notify.NewLocal()
	}

	gateway := ai.NewClient(ai.Config{
		BaseURL: cfg.AIBaseURL,
		APIKey:  cfg.AIAPIKey,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
	}, log)

	h := hub.NewHub(ctx, lobby.Deps{
		Gateway:   gateway,
		Store:     st,
		Notifier:  notifier,
		Log:       log,
		AITimeout: cfg.AITimeout,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.SetupRoutes(&httpapi.API{Hub: h, Store: st, Gateway: gateway, Log: log}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
