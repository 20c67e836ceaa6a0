package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-tour-reservation/internal/config"
	"github.com/iliyamo/bus-tour-reservation/internal/database"
	"github.com/iliyamo/bus-tour-reservation/internal/handler"
	"github.com/iliyamo/bus-tour-reservation/internal/logger"
	"github.com/iliyamo/bus-tour-reservation/internal/mailer"
	"github.com/iliyamo/bus-tour-reservation/internal/middleware"
	"github.com/iliyamo/bus-tour-reservation/internal/pricing"
	"github.com/iliyamo/bus-tour-reservation/internal/queue"
	"github.com/iliyamo/bus-tour-reservation/internal/repository"
	"github.com/iliyamo/bus-tour-reservation/internal/router"
	"github.com/iliyamo/bus-tour-reservation/internal/scheduler"
	"github.com/iliyamo/bus-tour-reservation/internal/service"
	"github.com/iliyamo/bus-tour-reservation/internal/ticket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// the logger depends on config, so fall back to a default one
		zap.NewExample().Fatal("load config", zap.Error(err))
	}
	log := logger.New(logger.ForEnv(cfg.Env, cfg.LogLevel))
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DB, log)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient(cfg.Redis, log)
	if rdb != nil {
		defer rdb.Close()
	}

	loc := cfg.Ticket.Location()

	// repositories
	services := repository.NewServiceRepo(db)
	rules := repository.NewDiscountRuleRepo(db)
	settings := repository.NewConfigRepo(db)
	locators := repository.NewLocatorRepo(db)
	reservations := repository.NewReservationRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	// ticket pipeline
	store := ticket.NewTempStore(cfg.Ticket.UploadsRoot, loc)
	renderer := ticket.NewRenderer(store,
		ticket.NewHTTPFooter(cfg.Ticket.FooterImageURL, cfg.Ticket.FooterTimeout),
		ticket.NewPDF, log.Named("ticket"), loc)

	publisher := service.NewPublisher(cfg.Broker.URL, log.Named("publisher"))
	defer publisher.Close()

	calc := pricing.NewCalculator(pricing.DefaultOptions())

	var wg sync.WaitGroup
	startWorker := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("worker stopped", zap.String("worker", name), zap.Error(err))
			}
		}()
	}

	startWorker("janitor", (&scheduler.Janitor{
		Store:     store,
		Tokens:    tokens,
		Interval:  cfg.Janitor.Interval,
		Retention: cfg.Ticket.Retention,
		Logger:    log.Named("janitor"),
	}).Run)

	if cfg.Broker.Consumer {
		mail, err := mailer.New(cfg.Mail, log.Named("mailer"))
		switch {
		case errors.Is(err, mailer.ErrNotConfigured):
			log.Warn("RESEND_API_KEY not set, ticket e-mails disabled")
		case err != nil:
			return err
		default:
			delivery := &queue.TicketDelivery{
				Reservations: reservations,
				Renderer:     renderer,
				Sender:       mail,
				Files:        store,
				Logger:       log.Named("delivery"),
				Timeout:      time.Minute,
			}
			startWorker("ticket-consumer", queue.NewConsumer(cfg.Broker.URL, delivery.Handle, log.Named("consumer")).Run)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log.Named("http")))

	router.Register(e, router.Handlers{
		Health:  &handler.HealthHandler{DB: db},
		Catalog: &handler.CatalogHandler{Services: services, Config: settings, Loc: loc, Logger: log},
		Prices:  &handler.PriceHandler{Services: services, Rules: rules, Calc: calc, Logger: log},
		Reservations: &handler.ReservationHandler{
			DB:           db,
			Services:     services,
			Rules:        rules,
			Locators:     locators,
			Reservations: reservations,
			Calc:         calc,
			Publisher:    publisher,
			Logger:       log.Named("reservations"),
			Loc:          loc,
		},
		Tickets: &handler.TicketHandler{Reservations: reservations, Renderer: renderer, Logger: log},
		Auth:    handler.NewAuthHandler(cfg.Auth, users, tokens, log),
	}, router.Options{
		JWTSecret: cfg.Auth.JWTSecret,
		RateLimit: middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
		Cache:     middleware.NewRedisCache(cfg.Cache, rdb, log),
	})

	srvErr := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case err := <-srvErr:
		stop()
		wg.Wait()
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	err = e.Shutdown(shutdownCtx)
	wg.Wait()
	return err
}
