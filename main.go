package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"exchange/src/batch"
	"exchange/src/config"
	"exchange/src/engine"
	"exchange/src/handlers"
	"exchange/src/journal"
	"exchange/src/logger"
	"exchange/src/metrics"
	"exchange/src/records"
	"exchange/src/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet; the zerolog default writes to stderr
		zlog.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger.InitLogger(cfg.Log)
	log := logger.GetLogger()
	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Str("mode", cfg.Mode).Msg("Exchange stopped with error")
		logger.CloseLogger()
		os.Exit(1)
	}
	logger.CloseLogger()
}

func run(cfg config.Config, log zerolog.Logger) error {
	log.Info().
		Str("mode", cfg.Mode).
		Str("traders", cfg.Resources.Traders).
		Bool("journal", cfg.Journal.Enabled).
		Bool("metrics", cfg.Metrics.Enabled).
		Msg("Initializing exchange")

	var store *journal.Store
	if cfg.Journal.Enabled {
		var err error
		store, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if cfg.Mode == config.ModeServe {
		return serve(ctx, cfg, log, store, m)
	}
	_, err := batch.Run(ctx, cfg, batch.Deps{Logger: log, Journal: store, Metrics: m})
	return err
}

func serve(ctx context.Context, cfg config.Config, log zerolog.Logger, store *journal.Store, m *metrics.Metrics) error {
	traders, err := records.LoadTradersFile(cfg.Resources.Traders)
	if err != nil {
		return err
	}
	ledger := engine.NewLedger()
	for _, t := range traders {
		if _, err := ledger.Add(t.Name, t.Cash, t.Holdings); err != nil {
			return err
		}
	}

	opts := engine.DefaultOptions()
	opts.VerifyInvariants = cfg.Engine.VerifyInvariants
	if m != nil {
		opts.OnTrade = m.ObserveTrade
		opts.OnReject = m.ObserveReject
	}
	matcher := engine.NewMatcher(ledger, opts)
	orderHandler := handlers.NewOrderHandler(matcher, cfg.Engine, store, m)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}

			log.Error().
				Str("path", c.Path()).
				Str("method", c.Method()).
				Int("status", code).
				Str("error", err.Error()).
				Msg("Request error")

			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	routes.SetupRoutes(app, orderHandler, cfg.Server, m)

	port := ":" + strconv.Itoa(cfg.Server.Port)
	serverError := make(chan error, 1)
	go func() {
		if err := app.Listen(port); err != nil {
			serverError <- err
		}
	}()

	log.Info().
		Str("port", port).
		Int("traders", len(traders)).
		Strs("endpoints", []string{
			"POST   /api/v1/orders",
			"GET    /api/v1/orders/:id",
			"GET    /api/v1/orderbook/:asset",
			"GET    /api/v1/traders",
			"GET    /api/v1/traders/:name",
			"GET    /health",
			"GET    /metrics",
			"GET    /metrics/prometheus",
		}).
		Msg("Exchange started")

	var haltErr error
	select {
	case err := <-serverError:
		log.Error().
			Err(err).
			Str("port", port).
			Str("hint", "Port may be already in use. Try: EXCHANGE_SERVER_PORT=3000").
			Msg("Server failed to start")
		return err
	case <-ctx.Done():
		log.Info().Msg("Received shutdown signal, shutting down...")
	case <-orderHandler.Halted():
		haltErr = orderHandler.HaltErr()
		log.Error().Err(haltErr).Msg("Matcher halted, shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().
				Dur("timeout", cfg.Server.ShutdownTimeout).
				Msg("Timeout exceeded, shutting down...")
		} else {
			log.Error().
				Err(err).
				Msg("Error during shutdown")
		}
	}

	// balances from a corrupt book are never written
	if haltErr != nil {
		return haltErr
	}

	// no requests are in flight past this point
	out := cfg.OutputPath()
	if err := records.WriteBalancesFile(out, matcher.Balances()); err != nil {
		return err
	}
	log.Info().Str("output", out).Msg("Shutdown complete, balances written")
	return nil
}
