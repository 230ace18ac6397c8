// Package http holds the contract between the API binary, the router and
// the modules that mount CRM routes.
package http

import (
	"context"

	"salescrm_backend/platform/config"
	"salescrm_backend/platform/httpkit"
	"salescrm_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// RouterConfig is what the router reads from config: CORS, listen address
// and the JWT secret for AuthRequired.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs GET /api/health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is assembled in cmd/api and handed to router.New.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Health  HealthChecker
	Modules []Module
}

// Module mounts one bounded context (crm, notification) on the shared groups.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the route groups a module may mount on.
//
//	V1         /api/v1, unauthenticated; provider webhooks only
//	Protected  /api/v1, bearer token required
//	Admin      /api/v1/admin, admin role required
type RouterContext struct {
	V1                 *gin.RouterGroup
	Protected          *gin.RouterGroup
	Admin              *gin.RouterGroup
	WebhookRateLimiter *httpkit.IPRateLimiter
}
