package scheduler

import (
	"context"
	"fmt"
	"time"

	"salescrm_backend/platform/config"
	"salescrm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// channelResetCron runs just after local midnight.
const channelResetCron = "1 0 * * *"

// PeriodicConfig is what the periodic scheduler needs from configuration.
type PeriodicConfig interface {
	config.SchedulerConfig
	config.CalendarConfig
}

type periodicEntry struct {
	cron string
	task *asynq.Task
	opts []asynq.Option
}

// Periodic enqueues the recurring CRM jobs on their cron schedules. Run it on
// a single instance; duplicate enqueues are still dropped by asynq.Unique.
type Periodic struct {
	scheduler *asynq.Scheduler
	entries   []periodicEntry
	log       *logger.Logger
}

func NewPeriodic(cfg PeriodicConfig, log *logger.Logger) (*Periodic, error) {
	opt, err := connOpt(cfg)
	if err != nil {
		return nil, err
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: cfg.GetLocation(),
		Logger:   newAsynqLogger(log),
	})

	p := &Periodic{
		scheduler: scheduler,
		entries:   periodicEntries(cfg, queueName(cfg)),
		log:       log,
	}
	for _, e := range p.entries {
		if _, err := scheduler.Register(e.cron, e.task, e.opts...); err != nil {
			return nil, fmt.Errorf("register %s: %w", e.task.Type(), err)
		}
	}
	return p, nil
}

func periodicEntries(cfg config.SchedulerConfig, queue string) []periodicEntry {
	sweep := cfg.GetReminderSweepCron()
	if sweep == "" {
		sweep = "@every 1m"
	}
	digest := cfg.GetDailyDigestCron()
	if digest == "" {
		digest = "0 8 * * *"
	}

	return []periodicEntry{
		{
			// A missed sweep is picked up by the next one.
			cron: sweep,
			task: NewReminderSweepTask(),
			opts: []asynq.Option{asynq.Queue(queue), asynq.MaxRetry(0), asynq.Unique(time.Minute)},
		},
		{
			cron: digest,
			task: NewDailyDigestTask(),
			opts: []asynq.Option{asynq.Queue(queue), asynq.MaxRetry(3), asynq.Unique(time.Hour)},
		},
		{
			cron: channelResetCron,
			task: NewChannelDailyResetTask(),
			opts: []asynq.Option{asynq.Queue(queue), asynq.MaxRetry(5), asynq.Unique(time.Hour)},
		},
	}
}

func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}

	if err := p.scheduler.Start(); err != nil {
		p.log.Error("periodic scheduler failed to start", "error", err)
		return
	}
	p.log.Info("periodic scheduler started", "entries", len(p.entries))

	<-ctx.Done()
	p.scheduler.Shutdown()
}
