package handler

import (
	"net/http"

	"salescrm_backend/internal/crm/activity"
	"salescrm_backend/internal/crm/domain"
	"salescrm_backend/internal/crm/intake"
	"salescrm_backend/internal/crm/messaging"
	"salescrm_backend/internal/crm/transport"
	"salescrm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateLead(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var req transport.CreateLeadRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.Intake.CreateLead(c.Request.Context(), intake.CreateLeadParams{
		Actor:        caller,
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		Company:      req.Company,
		InterestedIn: req.InterestedIn,
		Message:      req.Message,
		Source:       req.Source,
		AssigneeID:   req.AssigneeID,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

func (h *Handler) GetLead(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	lead, err := h.svc.Intake.Get(c.Request.Context(), caller, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) ChangeLeadStatus(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transport.ChangeLeadStatusRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.Intake.ChangeStatus(c.Request.Context(), caller, id, intake.ChangeStatusParams{
		Status: req.Status,
		Notes:  req.Notes,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) SendWhatsApp(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transport.SendWhatsAppRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.Messaging.SendToLead(c.Request.Context(), messaging.SendToLeadParams{
		Actor:        caller,
		LeadID:       id,
		Text:         req.Message,
		TemplateID:   req.TemplateID,
		TemplateUsed: req.TemplateUsed,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) ListLeadFollowUps(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	items, err := h.svc.FollowUps.ListForLead(c.Request.Context(), caller, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"items": items})
}

func (h *Handler) ListLeadActivities(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	items, err := h.svc.Activity.ListForLead(c.Request.Context(), caller, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"items": items})
}

func (h *Handler) RecordActivity(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transport.RecordActivityRequest
	if !h.bind(c, &req) {
		return
	}

	userID := caller.UserID
	recorded, err := h.svc.Activity.RecordFor(c.Request.Context(), caller, activity.RecordParams{
		LeadID:          id,
		UserID:          &userID,
		Type:            domain.ActivityType(req.Type),
		Status:          domain.ActivityStatus(req.Status),
		Notes:           req.Notes,
		DurationSeconds: req.Duration,
		TemplateUsed:    req.TemplateUsed,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, recorded)
}
