package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/cafe-pos/internal/config"
	"github.com/iliyamo/cafe-pos/internal/database"
	"github.com/iliyamo/cafe-pos/internal/handler"
	"github.com/iliyamo/cafe-pos/internal/logger"
	"github.com/iliyamo/cafe-pos/internal/middleware"
	"github.com/iliyamo/cafe-pos/internal/notify"
	"github.com/iliyamo/cafe-pos/internal/observability"
	"github.com/iliyamo/cafe-pos/internal/queue"
	"github.com/iliyamo/cafe-pos/internal/repository"
	"github.com/iliyamo/cafe-pos/internal/router"
	"github.com/iliyamo/cafe-pos/internal/service"
)

func main() {
	cfg := config.Load()
	lg, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, lg *zap.Logger) error {
	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			lg.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	db, err := database.Open(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		lg.Warn("redis unavailable: rate limiting, caching and cross-instance relay disabled")
	} else {
		defer rdb.Close()
	}

	// Closed after the dispatcher below has drained.
	var amqpSink *notify.AMQPSink
	if cfg.Notify.AMQPURL != "" {
		amqpSink = notify.NewAMQPSink(cfg.Notify.AMQPURL, cfg.Notify.AMQPExchange, lg)
		defer amqpSink.Close()
	}

	var wg sync.WaitGroup
	bg, cancelBG := context.WithCancel(ctx)
	defer func() {
		cancelBG()
		wg.Wait()
	}()
	goBG := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(bg); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error(name+" exited", zap.Error(err))
			}
		}()
	}

	// Live fan-out. With Redis every instance publishes to pub/sub and
	// relays the channel into its own hub; otherwise the hub is fed directly.
	hub := notify.NewHub(lg, 64)
	var sinks []notify.Sink
	if rdb != nil {
		sinks = append(sinks, notify.NewRedisSink(rdb, cfg.Notify.RedisChannelPrefix))
		goBG("redis relay", func(ctx context.Context) error {
			return notify.RunRedisRelay(ctx, rdb, cfg.Notify.RedisChannelPrefix, hub, lg)
		})
	} else {
		sinks = append(sinks, hub)
	}
	if amqpSink != nil {
		sinks = append(sinks, amqpSink)
		goBG("audit consumer", func(ctx context.Context) error {
			return queue.StartAuditConsumer(ctx, cfg.Notify, lg)
		})
	}
	// Not tied to the signal context: requests drained by e.Shutdown still
	// publish. Close flushes the queues before the sinks are closed.
	dispatcher := notify.NewDispatcher(lg, cfg.Notify.QueueSize, cfg.Notify.PublishTimeout, sinks...)
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		dispatcher.Run(context.Background())
	}()
	defer func() {
		dispatcher.Close()
		<-dispatched
	}()

	uow := repository.NewUnitOfWork(db)
	wf := service.NewOrderWorkflow(uow, dispatcher, lg, service.WorkflowOptions{
		RestockOnDelete: cfg.Workflow.RestockOnDelete,
	})
	bills := service.NewBillService(uow, lg)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(lg))

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg,
		repository.NewUserRepo(db), repository.NewRefreshTokenRepo(db), lg), cfg.JWTSecret)
	router.RegisterEmployee(e, router.Employee{
		Orders:    handler.NewOrderHandler(wf, bills, lg),
		Tables:    handler.NewTableHandler(service.NewTableService(uow, dispatcher, lg), lg),
		Bills:     handler.NewBillHandler(bills, lg),
		Catalog:   handler.NewCatalogHandler(service.NewCatalogService(uow, lg), lg),
		Live:      handler.NewLiveHandler(hub, wf, lg),
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.NewTokenBucket(cfg.RateLimit, rdb, lg),
		Cache:     middleware.NewRedisCache(cfg.Cache, rdb, lg),
	})

	errc := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		lg.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	lg.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(sctx)
}
