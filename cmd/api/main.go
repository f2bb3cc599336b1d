package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/awopa/maternal-notify/internal/config"
	"github.com/awopa/maternal-notify/internal/handler"
	"github.com/awopa/maternal-notify/internal/infra/postgresql"
	"github.com/awopa/maternal-notify/internal/infra/postgresql/migrations"
	infraredis "github.com/awopa/maternal-notify/internal/infra/redis"
	"github.com/awopa/maternal-notify/internal/observability"
	"github.com/awopa/maternal-notify/internal/provider"
	"github.com/awopa/maternal-notify/internal/queue"
	"github.com/awopa/maternal-notify/internal/ratelimit"
	"github.com/awopa/maternal-notify/internal/repository"
	"github.com/awopa/maternal-notify/internal/service"
	"github.com/awopa/maternal-notify/internal/transport"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

const (
	cronAppointments = "0 * * * *"
	cronWater        = "0 9 * * *"
	cronTips         = "0 10 */3 * *"
	cronMedications  = "0 8 * * *"
	cronPregnancy    = "0 11 * * 1"
	cronSweep        = "*/15 * * * *"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel, "maternal-notify")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("maternal-notify stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("maternal-notify stopped")
}

type producers struct {
	appointments *service.AppointmentReminders
	medications  *service.MedicationReminders
	water        *service.WaterReminders
	tips         *service.NutritionTips
	pregnancy    *service.PregnancyUpdates
	visits       *service.VisitReminders
}

func (p producers) markerSources() []service.MarkerSource {
	return []service.MarkerSource{p.appointments, p.medications, p.water, p.tips, p.pregnancy, p.visits}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	metrics := observability.NewMetrics()

	db, err := postgresql.Open(ctx, cfg.DatabaseDSN, postgresql.Options{
		MaxOpenConns:       cfg.DBMaxOpenConns,
		MaxIdleConns:       cfg.DBMaxIdleConns,
		ConnMaxLifetime:    cfg.DBConnMaxLifetime,
		SlowQueryThreshold: cfg.DBSlowQueryLogTime,
	}, logger)
	if err != nil {
		return fmt.Errorf("postgres initialization failed: %w", err)
	}
	if err := migrations.Migrate(db); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres underlying db init failed: %w", err)
	}
	defer sqlDB.Close()

	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		rdb, err = infraredis.NewRedis(ctx, cfg.RedisURL, logger)
		if err != nil {
			return fmt.Errorf("redis initialization failed: %w", err)
		}
		defer rdb.Close()
	} else {
		logger.Info("redis disabled, using in-process rate limiting and no trigger lock")
	}

	var broker *queue.RabbitMQ
	if cfg.RabbitMQURL != "" {
		broker, err = queue.NewRabbitMQ(cfg.RabbitMQURL, logger)
		if err != nil {
			return fmt.Errorf("rabbitmq initialization failed: %w", err)
		}
		defer broker.Close()
	} else {
		logger.Info("rabbitmq disabled, exhausted reminders are only logged")
	}

	sms, err := newSMSSender(ctx, cfg)
	if err != nil {
		return err
	}

	limiter, err := newLimiter(rdb, cfg.GatewayRateLimitPerSec)
	if err != nil {
		return err
	}

	gateway, err := service.NewGateway(repository.NewGormAttemptRepo(db), sms, limiter, logger)
	if err != nil {
		return err
	}
	gateway.SetMetrics(metrics)
	if cfg.EmailEnabled() {
		mailer, err := provider.NewSMTPMailer(provider.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		if err != nil {
			return fmt.Errorf("smtp mailer initialization failed: %w", err)
		}
		gateway.SetMailer(mailer)
	}

	appointmentRepo := repository.NewGormAppointmentRepo(db)
	medicationRepo := repository.NewGormMedicationRepo(db)
	nutritionRepo := repository.NewGormNutritionRepo(db)
	pregnancyRepo := repository.NewGormPregnancyRepo(db)
	visitRepo := repository.NewGormVisitRepo(db)

	pending, err := service.NewPendingQueue(repository.NewGormPendingReminderRepo(db), gateway, logger)
	if err != nil {
		return err
	}
	pending.SetMetrics(metrics)
	if broker != nil {
		publisher := queue.NewRabbitMQPublisher(broker)
		defer publisher.Close()
		pending.SetPublisher(publisher)
	}

	driver, err := service.NewReminderDriver(gateway, pending, logger)
	if err != nil {
		return err
	}
	driver.SetMetrics(metrics)

	prods, err := newProducers(appointmentRepo, medicationRepo, nutritionRepo, pregnancyRepo, visitRepo, logger)
	if err != nil {
		return err
	}
	for _, source := range prods.markerSources() {
		pending.RegisterMarkers(source.Markers())
	}

	messaging, err := service.NewMessagingService(gateway, pending, logger)
	if err != nil {
		return err
	}
	appointments, err := service.NewAppointmentService(appointmentRepo, gateway, pending, logger)
	if err != nil {
		return err
	}
	care, err := service.NewCareService(nutritionRepo, medicationRepo, pregnancyRepo, gateway, pending, logger)
	if err != nil {
		return err
	}
	visits, err := service.NewVisitService(visitRepo, pregnancyRepo, gateway, pending, logger)
	if err != nil {
		return err
	}
	pins, err := service.NewPinService(repository.NewGormPinRepo(db), gateway, pending, logger)
	if err != nil {
		return err
	}

	connectivity := service.NewConnectivityMonitor(cfg.ConnectivityCheckURL, cfg.ConnectivityInterval, logger)
	connectivity.SetMetrics(metrics)
	connectivity.OnOnline(func(ctx context.Context) {
		if _, err := pending.Sweep(ctx); err != nil {
			logger.Error("pending sweep after reconnect failed", zap.Error(err))
		}
	})

	scheduler, err := service.NewScheduler([]service.Trigger{
		{Name: "appointments", Spec: cronAppointments, Run: runProducer(driver, prods.appointments)},
		{Name: "water", Spec: cronWater, Run: runProducer(driver, prods.water)},
		{Name: "nutrition_tips", Spec: cronTips, Run: runProducer(driver, prods.tips)},
		{Name: "medications", Spec: cronMedications, Run: runProducer(driver, prods.medications)},
		{Name: "pregnancy", Spec: cronPregnancy, Run: runProducer(driver, prods.pregnancy)},
		{Name: "visits", Spec: cfg.VisitReminderCron, Run: runProducer(driver, prods.visits)},
		{Name: "pending_sweep", Spec: cronSweep, Run: func(ctx context.Context) error {
			_, err := pending.Sweep(ctx)
			return err
		}},
	}, connectivity, logger)
	if err != nil {
		return err
	}
	scheduler.SetMetrics(metrics)
	if rdb != nil {
		locker, err := infraredis.NewLocker(rdb)
		if err != nil {
			return err
		}
		scheduler.SetLocker(locker)
	}

	var alerts *service.AlertWorker
	if broker != nil && cfg.AlertEmail != "" && cfg.EmailEnabled() {
		consumer := queue.NewRabbitMQConsumer(broker, cfg.AlertConcurrency, logger)
		defer consumer.Close()
		alerts, err = service.NewAlertWorker(consumer, gateway, cfg.AlertEmail, cfg.AlertConcurrency, logger)
		if err != nil {
			return err
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      "maternal-notify",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Header: observability.CorrelationHeader}))
	app.Use(observability.CorrelationMiddleware())
	app.Use(metrics.HTTPMiddleware())
	app.Use(observability.RequestLogger(logger, "/livez", "/readyz", "/metrics"))

	health := handler.HealthDeps{DB: sqlDB, Redis: rdb, Metrics: metrics.Handler()}
	if broker != nil {
		health.Broker = broker
	}
	handler.RegisterHealthRoutes(app, health)

	if err := handler.RegisterSMSRoutes(app, handler.SMSDeps{
		Messages:        messaging,
		Appointments:    appointments,
		Care:            care,
		RunAppointments: runNow(driver, prods.appointments),
		RunMedications:  runNow(driver, prods.medications),
		RunWater:        runNow(driver, prods.water),
		RunTips:         runNow(driver, prods.tips),
		RunPregnancy:    runNow(driver, prods.pregnancy),
		Sweep:           pending.Sweep,
	}); err != nil {
		return err
	}
	if err := handler.RegisterVisitRoutes(app, visits); err != nil {
		return err
	}
	pinLimiter, err := newLimiter(rdb, cfg.PinRateLimitPerSec)
	if err != nil {
		return err
	}
	if err := handler.RegisterPinRoutes(app, pins, pinLimiter); err != nil {
		return err
	}
	if err := handler.RegisterPendingRoutes(app, pending); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return connectivity.Start(gctx) })
	g.Go(func() error { return scheduler.Start(gctx) })
	if alerts != nil {
		g.Go(func() error { return alerts.Start(gctx) })
	}
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		logger.Info("maternal-notify api started", zap.String("addr", addr), zap.String("smsProvider", cfg.SMSProvider))
		if err := app.Listen(addr); err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newSMSSender(ctx context.Context, cfg *config.Config) (provider.SMSSender, error) {
	switch cfg.SMSProvider {
	case config.SMSProviderSNS:
		sender, err := provider.NewSNSSender(ctx, cfg.SNSRegion)
		if err != nil {
			return nil, fmt.Errorf("sns sender initialization failed: %w", err)
		}
		return sender, nil
	default:
		sender, err := provider.NewArkeselSender(cfg.SMSAPIURL, cfg.SMSAPIKey, cfg.SMSSenderID)
		if err != nil {
			return nil, fmt.Errorf("arkesel sender initialization failed: %w", err)
		}
		return sender, nil
	}
}

// newLimiter shares the window across replicas through redis when it is configured.
func newLimiter(rdb *goredis.Client, limitPerSec int) (ratelimit.RateLimiter, error) {
	if rdb == nil {
		return ratelimit.NewLocalRateLimiter(limitPerSec, 0), nil
	}
	limiter, err := infraredis.NewRedisRateLimiter(rdb, limitPerSec)
	if err != nil {
		return nil, fmt.Errorf("redis rate limiter initialization failed: %w", err)
	}
	return limiter, nil
}

func newProducers(
	appointments repository.AppointmentRepository,
	medications repository.MedicationRepository,
	nutrition repository.NutritionRepository,
	pregnancies repository.PregnancyRepository,
	visits repository.VisitRepository,
	logger *zap.Logger,
) (producers, error) {
	var (
		p   producers
		err error
	)
	if p.appointments, err = service.NewAppointmentReminders(appointments, logger); err != nil {
		return p, err
	}
	if p.medications, err = service.NewMedicationReminders(medications); err != nil {
		return p, err
	}
	if p.water, err = service.NewWaterReminders(nutrition); err != nil {
		return p, err
	}
	if p.tips, err = service.NewNutritionTips(nutrition, logger); err != nil {
		return p, err
	}
	if p.pregnancy, err = service.NewPregnancyUpdates(pregnancies, logger); err != nil {
		return p, err
	}
	if p.visits, err = service.NewVisitReminders(visits); err != nil {
		return p, err
	}
	return p, nil
}

func runProducer(driver *service.ReminderDriver, producer service.ReminderProducer) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := driver.Run(ctx, producer)
		return err
	}
}

func runNow(driver *service.ReminderDriver, producer service.ReminderProducer) handler.RunFunc {
	return func(ctx context.Context) (service.RunResult, error) {
		return driver.Run(ctx, producer)
	}
}
