// cmd/historian/main.go runs the historian: it drains judged rounds from the
// Redis queue into PostgreSQL.
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/czar/internal/cache"
	"github.com/jason-s-yu/czar/internal/config"
	"github.com/jason-s-yu/czar/internal/database"
	"github.com/jason-s-yu/czar/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	top := flag.Int("top", 0, "print the N players with the most won rounds and exit")
	flag.Parse()

	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.Level())
	if cfg.DatabaseURL == "" {
		logger.Fatal("historian needs DATABASE_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()

	store := database.NewRoundStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatalf("schema: %v", err)
	}

	if *top > 0 {
		winners, err := store.TopWinners(ctx, *top)
		if err != nil {
			logger.Fatalf("top winners: %v", err)
		}
		for i, w := range winners {
			fmt.Printf("%2d. %-32s %d\n", i+1, w.WinnerName, w.Wins)
		}
		return
	}

	if cfg.RedisAddr == "" {
		logger.Fatal("historian needs REDIS_ADDR")
	}
	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	svc := historian.New(
		historian.NewRedisQueue(rdb, cfg.HistorianQueueName),
		store,
		historian.Options{BatchSize: cfg.HistorianBatchSize, FlushInterval: cfg.HistorianFlushInterval},
		logger.WithField("queue", cfg.HistorianQueueName),
	)
	if err := svc.Run(ctx); err != nil {
		logger.Fatalf("historian: %v", err)
	}
	logger.Info("Historian shutdown complete.")
}
