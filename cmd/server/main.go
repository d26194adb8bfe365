package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"backend-tiket/internal/config"
	"backend-tiket/internal/helper"
	"backend-tiket/internal/http/handler"
	"backend-tiket/internal/http/middleware"
	"backend-tiket/internal/journal"
	"backend-tiket/internal/queue"
	"backend-tiket/internal/realtime"
	"backend-tiket/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	envFound := config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if !envFound {
		logger.Info(".env tidak ditemukan, pakai env system")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var backend queue.Store
	switch cfg.StoreDriver {
	case "memory":
		backend = store.NewMemory()
		logger.Warn("using in-memory store, tickets are lost on restart")
	default:
		rdb, err := config.NewRedis(ctx, cfg)
		if err != nil {
			logger.Fatal("Redis tidak nyambung", zap.Error(err))
		}
		defer rdb.Close()
		backend = store.NewRedis(rdb)
		logger.Info("redis connected", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
	}

	hub := realtime.NewHub(logger.Named("hub"))
	defer hub.Close()

	if cfg.DBDSN != "" {
		db, err := config.OpenDB(cfg.DBDSN)
		if err != nil {
			logger.Fatal("mysql unavailable", zap.Error(err))
		}
		defer db.Close()

		j := journal.New(db, hub, logger.Named("journal"))
		if err := j.EnsureSchema(ctx); err != nil {
			logger.Fatal("journal schema", zap.Error(err))
		}
		go j.Run(ctx)
	}

	var hours *helper.Hours
	if cfg.HoursEnabled() {
		h, err := helper.ParseHours(cfg.OpenAt, cfg.CloseAt, cfg.TimeZone)
		if err != nil {
			logger.Fatal("opening hours", zap.Error(err))
		}
		hours = &h
	}

	coord := queue.NewCoordinator(backend, backend, hub,
		queue.WithPolicy(cfg.Announce),
		queue.WithLogger(logger.Named("queue")),
	)

	app := fiber.New(fiber.Config{
		Prefork:       false,
		CaseSensitive: true,
		StrictRouting: true,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(logger.Named("http")))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST",
	}))

	handler.Routes(app,
		handler.NewTicketHandler(coord, hours, logger.Named("tickets")),
		handler.NewFeedHandler(hub, logger.Named("feed")),
	)

	go func() {
		<-ctx.Done()
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	logger.Info("Server jalan", zap.String("addr", cfg.Addr()))
	if err := app.Listen(cfg.Addr()); err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
}
