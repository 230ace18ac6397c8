package handler

import (
	"encoding/xml"
	"net/http"

	"salescrm_backend/internal/crm/intake"
	"salescrm_backend/internal/crm/transport"
	"salescrm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// twimlResponse is the XML reply the provider relays back to the sender.
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

// WhatsAppWebhook receives inbound provider callbacks. It always answers 200
// for accepted deliveries so the provider does not redeliver them.
type WhatsAppWebhook struct {
	intake *intake.Service
}

func NewWhatsAppWebhook(svc *intake.Service) *WhatsAppWebhook {
	return &WhatsAppWebhook{intake: svc}
}

func (w *WhatsAppWebhook) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/whatsapp", w.Receive)
}

func (w *WhatsAppWebhook) Receive(c *gin.Context) {
	var req transport.WhatsAppWebhookRequest
	if err := c.ShouldBind(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := w.intake.ReceiveWhatsApp(c.Request.Context(), intake.InboundMessage{
		SID:         req.MessageSID,
		From:        req.From,
		Body:        req.Body,
		ProfileName: req.ProfileName,
		Status:      req.SmsStatus,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	if result.Reply == "" {
		c.String(http.StatusOK, string(result.Outcome))
		return
	}
	c.XML(http.StatusOK, twimlResponse{Message: result.Reply})
}
