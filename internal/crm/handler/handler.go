// Package handler exposes the CRM engine over HTTP.
package handler

import (
	"net/http"

	"salescrm_backend/internal/crm/activity"
	"salescrm_backend/internal/crm/assignment"
	"salescrm_backend/internal/crm/channels"
	"salescrm_backend/internal/crm/domain"
	"salescrm_backend/internal/crm/followups"
	"salescrm_backend/internal/crm/intake"
	"salescrm_backend/internal/crm/messaging"
	"salescrm_backend/internal/crm/settings"
	"salescrm_backend/internal/crm/templates"
	"salescrm_backend/platform/httpkit"
	"salescrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid id"
)

// Services are the engine entry points the handlers call.
type Services struct {
	Intake     *intake.Service
	FollowUps  *followups.Service
	Activity   *activity.Recorder
	Assignment *assignment.Service
	Channels   *channels.Service
	Messaging  *messaging.Service
	Settings   *settings.Service
	Templates  *templates.Service
}

type Handler struct {
	svc Services
	val *validator.Validator
}

func New(svc Services, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the employee-facing routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	leads := rg.Group("/leads")
	leads.POST("", h.CreateLead)
	leads.GET("/:id", h.GetLead)
	leads.PATCH("/:id/status", h.ChangeLeadStatus)
	leads.POST("/:id/whatsapp", h.SendWhatsApp)
	leads.GET("/:id/whatsapp", h.WhatsAppHistory)
	leads.POST("/:id/call", h.InitiateCall)
	leads.GET("/:id/followups", h.ListLeadFollowUps)
	leads.GET("/:id/activities", h.ListLeadActivities)
	leads.POST("/:id/activities", h.RecordActivity)

	tpl := rg.Group("/templates")
	tpl.GET("", h.ListTemplates)
	tpl.GET("/:id", h.GetTemplate)

	followUps := rg.Group("/followups")
	followUps.POST("", h.ScheduleFollowUp)
	followUps.GET("/overdue", h.ListOverdue)
	followUps.GET("/today", h.ListToday)
	followUps.GET("/upcoming", h.ListUpcoming)
	followUps.GET("/:id", h.GetFollowUp)
	followUps.POST("/:id/complete", h.CompleteFollowUp)
	followUps.POST("/:id/reschedule", h.RescheduleFollowUp)
	followUps.POST("/:id/snooze", h.SnoozeFollowUp)
	followUps.PATCH("/:id/status", h.UpdateFollowUpStatus)
}

// RegisterAdminRoutes mounts the admin-only routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/assignments/next", h.AssignNext)

	ch := rg.Group("/channels")
	ch.GET("", h.ListChannels)
	ch.POST("", h.CreateChannel)
	ch.GET("/stats", h.ChannelStats)
	ch.POST("/select", h.SelectChannel)
	ch.POST("/reset", h.ResetChannelCounts)
	ch.PATCH("/:id", h.UpdateChannel)
	ch.POST("/:id/usage", h.RecordChannelUsage)
	ch.PUT("/:id/default", h.SetDefaultChannel)

	tpl := rg.Group("/templates")
	tpl.POST("", h.CreateTemplate)
	tpl.PATCH("/:id", h.UpdateTemplate)
	tpl.DELETE("/:id", h.DeleteTemplate)

	rg.GET("/whatsapp/stats", h.MessageStats)

	rg.GET("/settings", h.GetSettings)
	rg.PUT("/settings", h.UpdateSettings)
}

// actor resolves the caller, aborting with 401 when unauthenticated.
func actor(c *gin.Context) (domain.Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return domain.Actor{}, false
	}
	return domain.Actor{UserID: identity.UserID(), Admin: identity.IsAdmin()}, true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}

// bind decodes and validates a JSON body, writing the 400 itself on failure.
func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}
