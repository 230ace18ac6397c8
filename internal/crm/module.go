// Package crm is the assignment and scheduling bounded context: lead
// rotation, the follow-up lifecycle, sender channel rotation and the
// activity log. This file wires the module and registers its routes.
package crm

import (
	"salescrm_backend/internal/adapters"
	"salescrm_backend/internal/crm/activity"
	"salescrm_backend/internal/crm/assignment"
	"salescrm_backend/internal/crm/channels"
	"salescrm_backend/internal/crm/domain"
	"salescrm_backend/internal/crm/followups"
	"salescrm_backend/internal/crm/handler"
	"salescrm_backend/internal/crm/intake"
	"salescrm_backend/internal/crm/messaging"
	"salescrm_backend/internal/crm/ports"
	"salescrm_backend/internal/crm/repository"
	"salescrm_backend/internal/crm/settings"
	"salescrm_backend/internal/crm/templates"
	"salescrm_backend/internal/email"
	"salescrm_backend/internal/events"
	apphttp "salescrm_backend/internal/http"
	"salescrm_backend/internal/reminders"
	"salescrm_backend/platform/config"
	"salescrm_backend/platform/logger"
	"salescrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the CRM bounded context implementing http.Module.
type Module struct {
	repo       *repository.Repository
	calendar   domain.Calendar
	notifier   ports.NotificationSink
	log        *logger.Logger
	settings   *settings.Service
	assignment *assignment.Service
	channels   *channels.Service
	activity   *activity.Recorder
	followUps  *followups.Service
	templates  *templates.Service
	messaging  *messaging.Service
	intake     *intake.Service
	handler    *handler.Handler
	webhook    *handler.WhatsAppWebhook
}

// NewModule wires every CRM service against PostgreSQL. sender delivers
// WhatsApp texts; notifications travel over bus.
func NewModule(pool *pgxpool.Pool, bus events.Bus, sender ports.MessageSender, val *validator.Validator, cfg config.CalendarConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	calendar := domain.NewCalendar(cfg.GetLocation(), nil)
	notifier := adapters.NewBusNotificationSink(bus)

	settingsSvc := settings.New(repo, log)
	assignmentSvc := assignment.New(repo, log)
	channelsSvc := channels.New(repo, settingsSvc, calendar, log)
	recorder := activity.New(repo, repo)
	followUpsSvc := followups.New(followups.Dependencies{
		FollowUps: repo,
		Leads:     repo,
		Users:     repo,
		Activity:  recorder,
		Settings:  settingsSvc,
		Notifier:  notifier,
		Calendar:  calendar,
		Log:       log,
	})
	templatesSvc := templates.New(repo)
	messagingSvc := messaging.New(messaging.Dependencies{
		Channels:  channelsSvc,
		Sender:    sender,
		Leads:     repo,
		Users:     repo,
		Activity:  recorder,
		Templates: templatesSvc,
		Messages:  repo,
		Inventory: channelsSvc,
		Location:  cfg.GetLocation(),
		Log:       log,
	})
	intakeSvc := intake.New(intake.Dependencies{
		Leads:     repo,
		Inbound:   repo,
		Users:     repo,
		Assigner:  assignmentSvc,
		FollowUps: followUpsSvc,
		Activity:  recorder,
		Settings:  settingsSvc,
		Admins:    repo,
		Notifier:  notifier,
		Bus:       bus,
		Log:       log,
	})

	return &Module{
		repo:       repo,
		calendar:   calendar,
		notifier:   notifier,
		log:        log,
		settings:   settingsSvc,
		assignment: assignmentSvc,
		channels:   channelsSvc,
		activity:   recorder,
		followUps:  followUpsSvc,
		templates:  templatesSvc,
		messaging:  messagingSvc,
		intake:     intakeSvc,
		handler: handler.New(handler.Services{
			Intake:     intakeSvc,
			FollowUps:  followUpsSvc,
			Activity:   recorder,
			Assignment: assignmentSvc,
			Channels:   channelsSvc,
			Messaging:  messagingSvc,
			Settings:   settingsSvc,
			Templates:  templatesSvc,
		}, val),
		webhook: handler.NewWhatsAppWebhook(intakeSvc),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "crm"
}

// RegisterRoutes mounts the CRM routes. The inbound webhook is public and
// rate limited per source IP.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
	m.handler.RegisterAdminRoutes(ctx.Admin)

	webhooks := ctx.V1.Group("/webhooks")
	if ctx.WebhookRateLimiter != nil {
		webhooks.Use(ctx.WebhookRateLimiter.RateLimit())
	}
	m.webhook.RegisterRoutes(webhooks)
}

// Messaging is used by the notification module to reach employees.
func (m *Module) Messaging() *messaging.Service {
	return m.messaging
}

// Channels is used by the scheduler for the nightly counter reset.
func (m *Module) Channels() *channels.Service {
	return m.channels
}

// Reminders builds the reminder sweep and daily digest service.
func (m *Module) Reminders(mailer email.Sender, lock reminders.Lock, dashboardURL string) *reminders.Service {
	return reminders.New(reminders.Dependencies{
		Reminders:    m.repo,
		FollowUps:    m.followUps,
		Leads:        m.repo,
		Employees:    m.repo,
		Settings:     m.settings,
		Notifier:     m.notifier,
		Email:        mailer,
		Lock:         lock,
		Calendar:     m.calendar,
		Log:          m.log,
		DashboardURL: dashboardURL,
	})
}

var _ apphttp.Module = (*Module)(nil)
