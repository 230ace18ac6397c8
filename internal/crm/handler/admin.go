package handler

import (
	"net/http"

	"salescrm_backend/internal/crm/channels"
	"salescrm_backend/internal/crm/domain"
	"salescrm_backend/internal/crm/settings"
	"salescrm_backend/internal/crm/transport"
	"salescrm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

func (h *Handler) AssignNext(c *gin.Context) {
	user, err := h.svc.Assignment.AssignNext(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, user)
}

func (h *Handler) ListChannels(c *gin.Context) {
	items, err := h.svc.Channels.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"items": items})
}

func (h *Handler) CreateChannel(c *gin.Context) {
	var req transport.CreateChannelRequest
	if !h.bind(c, &req) {
		return
	}

	created, err := h.svc.Channels.Create(c.Request.Context(), channels.CreateParams{
		Identifier: req.Identifier,
		Label:      req.Label,
		DailyLimit: req.DailyLimit,
		IsActive:   req.IsActive,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, created)
}

func (h *Handler) UpdateChannel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transport.UpdateChannelRequest
	if !h.bind(c, &req) {
		return
	}

	updated, err := h.svc.Channels.Update(c.Request.Context(), id, channels.UpdateParams{
		Label:      req.Label,
		IsActive:   req.IsActive,
		DailyLimit: req.DailyLimit,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, updated)
}

func (h *Handler) ChannelStats(c *gin.Context) {
	stats, err := h.svc.Channels.UsageStatistics(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, stats)
}

func (h *Handler) SelectChannel(c *gin.Context) {
	selected, err := h.svc.Channels.SelectChannel(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, selected)
}

func (h *Handler) RecordChannelUsage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	updated, err := h.svc.Channels.RecordUsage(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, updated)
}

func (h *Handler) SetDefaultChannel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	updated, err := h.svc.Channels.SetDefault(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, updated)
}

func (h *Handler) ResetChannelCounts(c *gin.Context) {
	reset, err := h.svc.Channels.ResetAllDailyCounts(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"reset": reset})
}

func (h *Handler) GetSettings(c *gin.Context) {
	httpkit.OK(c, h.svc.Settings.Get(c.Request.Context()))
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var req transport.UpdateSettingsRequest
	if !h.bind(c, &req) {
		return
	}

	params := settings.UpdateParams{
		AutoFollowUpEnabled:   req.AutoFollowUpEnabled,
		PreferDefaultNumber:   req.PreferDefaultNumber,
		NumberRotationEnabled: req.NumberRotationEnabled,
		LeadRotationEnabled:   req.LeadRotationEnabled,
		ReminderLeadMinutes:   req.ReminderLeadMinutes,
	}
	if req.RotationStrategy != nil {
		strategy := domain.RotationStrategy(*req.RotationStrategy)
		params.RotationStrategy = &strategy
	}
	if req.DefaultFollowUpIntervals != nil {
		params.DefaultFollowUpIntervals = make(map[domain.LeadStatus]int, len(req.DefaultFollowUpIntervals))
		for status, days := range req.DefaultFollowUpIntervals {
			params.DefaultFollowUpIntervals[domain.LeadStatus(status)] = days
		}
	}

	updated, err := h.svc.Settings.Update(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, updated)
}
