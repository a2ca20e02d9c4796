package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ElisaKikota/Business-Management-System-sub000/internal/config"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/credit"
	kafkax "github.com/ElisaKikota/Business-Management-System-sub000/internal/kafka"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/logx"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/orders"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/postgres"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/reconcile"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/redisx"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/stock"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logx.New(cfg.ServiceName+"-reconciler", cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Service
	svc := &reconcile.Service{
		Intents:     &reconcile.IntentRepo{DB: db},
		Stock:       &stock.PgLedger{DB: db},
		Credit:      &credit.PgLedger{DB: db},
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-reconciler",
		Grace:       30 * time.Second,
		Log:         log,
	}

	// Consumer semua topic order + sweep berkala
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ReconcilerGroup, orders.AllTopics(), cfg.ReconcilerWorkers, log)

	go func() {
		log.Infof("reconciler consumer started: group=%s workers=%d", cfg.ReconcilerGroup, cfg.ReconcilerWorkers)
		if err := cons.Start(ctx, svc.HandleOrderEvent); err != nil {
			log.Errorf("consumer exit: %v", err)
			cancel()
		}
	}()
	go svc.Sweep(ctx, time.Minute, 500)

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down reconciler...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
