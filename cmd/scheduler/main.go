package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"salescrm_backend/internal/bootstrap"
	"salescrm_backend/internal/crm"
	"salescrm_backend/internal/email"
	"salescrm_backend/internal/events"
	"salescrm_backend/internal/notification"
	"salescrm_backend/internal/reminders"
	"salescrm_backend/internal/scheduler"
	"salescrm_backend/internal/whatsapp"
	"salescrm_backend/platform/config"
	"salescrm_backend/platform/logger"
	"salescrm_backend/platform/validator"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "timezone", cfg.GetLocation().String())

	if cfg.GetRedisURL() == "" {
		panic("REDIS_URL is required for the scheduler")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := bootstrap.ConnectDatabase(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	// Worker-side CRM wiring (no HTTP handlers required).
	crmModule := crm.NewModule(pool, eventBus, whatsapp.NewClient(cfg, log), validator.New(), cfg, log)

	notificationModule := notification.New(pool, log)
	notificationModule.SetUserMessenger(crmModule.Messaging())
	notificationModule.RegisterHandlers(eventBus)

	redisClient, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		panic("failed to initialize redis client: " + err.Error())
	}
	defer func() { _ = redisClient.Close() }()

	if !cfg.IsEmailEnabled() {
		log.Warn("SMTP_HOST not configured; daily digests go out over WhatsApp only")
	}
	reminderSvc := crmModule.Reminders(email.NewSender(cfg), reminders.NewRedisLock(redisClient), cfg.GetAppBaseURL())

	worker, err := scheduler.NewWorker(cfg, scheduler.Handlers{
		Reminders: reminderSvc,
		Channels:  crmModule.Channels(),
		Bus:       eventBus,
	}, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}

	dispatcher, err := scheduler.NewNotificationOutboxDispatcher(cfg, pool, log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		worker.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		periodic.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		dispatcher.Run(groupCtx)
		return nil
	})

	_ = group.Wait()
	log.Info("scheduler stopped")
}
