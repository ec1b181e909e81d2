package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/evanhart/shopfront/internal/config"
	"github.com/evanhart/shopfront/internal/inventory"
	kafkax "github.com/evanhart/shopfront/internal/kafka"
	"github.com/evanhart/shopfront/internal/orders"
	"github.com/evanhart/shopfront/internal/postgres"
	"github.com/evanhart/shopfront/internal/redisx"
	"github.com/evanhart/shopfront/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.ServiceName+"-inventory", cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	pOK := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockReserved, 1024, log)
	pOK.Start(ctx)
	pRJ := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockRejected, 1024, log)
	pRJ.Start(ctx)

	worker := &inventory.Worker{
		Store:          &inventory.Repo{DB: db},
		Dedup:          redisx.Dedup{C: rdb},
		ProducerOK:     pOK,
		ProducerReject: pRJ,
		ServiceName:    cfg.ServiceName + "-inventory",
		Log:            log,
	}

	group := getenv("INVENTORY_GROUP", "inventory-svc")
	workers := mustAtoi(os.Getenv("INVENTORY_WORKERS"), 8)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderCreated, workers, log)

	go func() {
		log.Info("inventory consumer started",
			zap.String("group", group), zap.String("topic", orders.TopicOrderCreated), zap.Int("workers", workers))
		if err := cons.Start(ctx, worker.HandleOrderCreated); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down consumer")
	cancel()
	time.Sleep(500 * time.Millisecond)
	pOK.WaitClosed()
	pRJ.WaitClosed()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
