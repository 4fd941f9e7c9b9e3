// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/czar/internal/cache"
	"github.com/jason-s-yu/czar/internal/catalog"
	"github.com/jason-s-yu/czar/internal/config"
	"github.com/jason-s-yu/czar/internal/handlers"
	"github.com/jason-s-yu/czar/internal/lobby"
	"github.com/jason-s-yu/czar/internal/middleware"
	"github.com/jason-s-yu/czar/internal/random"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rng, seed, err := random.NewSource(cfg.ShuffleSeed)
	if err != nil {
		logger.Fatalf("shuffle source: %v", err)
	}
	logger.WithField("seed", seed).Debug("shuffle source ready")

	cards, err := catalog.Load(cfg.CardCatalogPath)
	if err != nil {
		logger.Fatalf("card catalog: %v", err)
	}
	logger.WithFields(logrus.Fields{
		"prompts": len(cards.Prompts),
		"answers": len(cards.Answers),
	}).Info("card catalog loaded")

	var recorder handlers.Recorder = handlers.NopRecorder{}
	if cfg.RedisAddr != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		rec := cache.NewRedisRecorder(rdb, cfg.HistorianQueueName)
		recorder = rec
		logger.WithField("queue", rec.Queue()).Info("recording rounds to redis")
	}

	store := lobby.NewStore(rng, cards, logger)
	gs := handlers.NewGameServer(store, recorder, logger)
	go gs.Run(ctx)

	mux := http.NewServeMux()
	ws := handlers.GameWSHandler(logger, gs, handlers.WSOptions{
		OriginPatterns: cfg.Origins(),
		SendBuffer:     cfg.SendBuffer,
	})
	handlers.Routes(mux, gs, ws, time.Now())

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: middleware.LogMiddleware(logger)(mux),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("shutdown: %v", err)
		}
	}()

	logger.Infof("Running on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
}
