package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/evanhart/shopfront/internal/config"
	"github.com/evanhart/shopfront/internal/httpx"
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
	log := logger.New(cfg.ServiceName, cfg.LogLevel)
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

	prodCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, log)
	prodCreated.Start(ctx)
	prodStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024, log)
	prodStatus.Start(ctx)

	orderRepo := &orders.Repo{DB: db}
	invRepo := &inventory.Repo{DB: db}
	adjuster := &inventory.Service{Store: invRepo, Log: log}
	agg := &inventory.Aggregator{
		Catalog:   orderRepo,
		Orders:    orderRepo,
		Holds:     invRepo,
		Movements: invRepo,
		ScanLimit: cfg.AuditScanLimit,
	}
	flow := &httpx.StatusFlow{
		Orders:   orderRepo,
		Holds:    invRepo,
		Adjuster: adjuster,
		Producer: prodStatus,
		Redis:    rdb,
		Service:  cfg.ServiceName,
		Log:      log,
	}
	validate := validator.New()

	router := httpx.NewRouter()
	(&httpx.AdminOrdersHandler{
		Orders:   orderRepo,
		Flow:     flow,
		Validate: validate,
		Log:      log,
	}).Register(router)
	(&httpx.UserOrdersHandler{
		Orders:       orderRepo,
		Flow:         flow,
		Producer:     prodCreated,
		Redis:        rdb,
		Validate:     validate,
		Service:      cfg.ServiceName,
		ReturnWindow: time.Duration(cfg.ReturnWindowD) * 24 * time.Hour,
		Log:          log,
	}).Register(router)
	(&httpx.InventoryHandler{Agg: agg, Redis: rdb, Log: log}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prodCreated.Close()
	prodStatus.Close()
	cancel()
	prodCreated.WaitClosed()
	prodStatus.WaitClosed()
}
