package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/cimillas/travel-waitlist/internal/app"
	"github.com/cimillas/travel-waitlist/internal/clock"
	"github.com/cimillas/travel-waitlist/internal/config"
	"github.com/cimillas/travel-waitlist/internal/notify"
	"github.com/cimillas/travel-waitlist/internal/storage/postgres"
	"github.com/cimillas/travel-waitlist/internal/sweep"
	transporthttp "github.com/cimillas/travel-waitlist/internal/transport/http"
	"github.com/cimillas/travel-waitlist/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	var notifier app.Notifier = notify.NewLogNotifier(logger)
	if cfg.AMQPURL != "" {
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			logger.Warn("amqp dial failed, falling back to log notifier", zap.Error(err))
		} else {
			defer conn.Close()
			notifier = notify.NewAMQPNotifier(conn, cfg.MailQueue)
		}
	}

	clk := clock.NewSystem()

	waitlistRepo := postgres.NewWaitlistRepository(pool)
	bookingRepo := postgres.NewBookingRepository(pool)
	packageRepo := postgres.NewPackageRepository(pool)

	offerSvc := app.NewOfferService(waitlistRepo, notifier, clk, logger, app.WithOfferWindow(cfg.OfferWindow))
	waitlistSvc := app.NewWaitlistService(waitlistRepo, offerSvc, clk, logger)
	bookingSvc := app.NewBookingService(bookingRepo, offerSvc, clk, logger, app.WithBookingOfferWindow(cfg.OfferWindow))
	adminSvc := app.NewAdminService(packageRepo, offerSvc, logger)
	reminderSvc := app.NewReminderService(bookingRepo, notifier, clk, logger, app.WithReminderLead(cfg.ReminderLead))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/waitlist", transporthttp.HandleJoinWaitlist(waitlistSvc))
	mux.Handle("/waitlist/leave", transporthttp.HandleLeaveWaitlist(waitlistSvc))
	mux.Handle("/waitlist/position", transporthttp.HandleWaitlistPosition(waitlistSvc))
	mux.Handle("/bookings", transporthttp.HandleCreateBooking(bookingSvc))
	mux.Handle("/bookings/", transporthttp.HandleBookingActions(bookingSvc, bookingSvc))
	mux.Handle("/packages/", transporthttp.HandlePackageQueue(offerSvc, packageRepo))
	mux.Handle("/admin/packages", transporthttp.HandleAdminPackages(adminSvc))
	mux.Handle("/admin/packages/", transporthttp.HandleAdminPackageActions(adminSvc, adminSvc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	sweeper := sweep.New(offerSvc, reminderSvc, cfg.SweepInterval, logger)
	go sweeper.Run(sweepCtx)

	logger.Info("api listening", zap.String("port", cfg.Port))

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	stopSweep()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}
