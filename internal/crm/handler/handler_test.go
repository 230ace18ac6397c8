package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"salescrm_backend/internal/crm/intake"
	"salescrm_backend/platform/httpkit"
	"salescrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newTestRouter(userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	h := New(Services{Intake: intake.New(intake.Dependencies{})}, validator.New())
	protected := r.Group("/api/v1", func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set(httpkit.ContextUserIDKey, userID)
			c.Set(httpkit.ContextRolesKey, []string{"employee"})
		}
		c.Next()
	})
	h.RegisterRoutes(protected)
	NewWhatsAppWebhook(h.svc.Intake).RegisterRoutes(r.Group("/api/v1/webhooks"))
	return r
}

func TestRoutesRequireIdentity(t *testing.T) {
	r := newTestRouter(uuid.Nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/followups/today", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateLeadValidation(t *testing.T) {
	r := newTestRouter(uuid.New())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/leads", strings.NewReader(`{"name":"Bob","phone":"12"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"phone":"phone"`)
}

func TestInvalidPathID(t *testing.T) {
	r := newTestRouter(uuid.New())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/leads/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), msgInvalidID)
}

func TestListRejectsBadDays(t *testing.T) {
	r := newTestRouter(uuid.New())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/followups/upcoming?days=zero", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookAcknowledgesStatusCallbacks(t *testing.T) {
	r := newTestRouter(uuid.Nil)

	form := url.Values{"MessageSid": {"SM1"}, "From": {"whatsapp:+12015550123"}, "SmsStatus": {"delivered"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(intake.InboundIgnored), w.Body.String())
}
