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

	"github.com/ElisaKikota/Business-Management-System-sub000/internal/authz"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/catalog"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/config"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/credit"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/engine"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/httpx"
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
	log := logx.New(cfg.ServiceName, cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start(ctx)

	// Engine & handler
	repo := &orders.Repo{DB: db}
	cat := &catalog.PgCatalog{DB: db}
	eng := &engine.Engine{
		Orders:   repo,
		Stock:    &stock.PgLedger{DB: db},
		Credit:   &credit.PgLedger{DB: db},
		Catalog:  cat,
		Gate:     &authz.PgGate{DB: db},
		Intents:  &reconcile.IntentRepo{DB: db},
		Producer: prod,
		Service:  cfg.ServiceName,
		Log:      log,
	}
	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Engine:   eng,
		Repo:     repo,
		Catalog:  cat,
		Redis:    rdb,
		Validate: validator.New(),
	}
	oh.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Infof("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // tutup inbox -> flush & close writer
	prod.WaitClosed() // drain
	cancel()
}
