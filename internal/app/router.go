package app

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/clipforge-backend/internal/http/handlers"
	"github.com/yungbote/clipforge-backend/internal/http/middleware"
	"github.com/yungbote/clipforge-backend/internal/pipeline"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
)

// wireRouter mounts the webhook and health routes openly and every pipeline
// endpoint behind the task-token middleware as GET /{endpoint}/{id}.
func wireRouter(log *logger.Logger, cfg Config, handlerset Handlers, mw Middleware, router *pipeline.Router) *gin.Engine {
	if cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware(cfg.ServiceName))
	engine.Use(middleware.RequestLogger(log))
	engine.Use(middleware.CORS())

	engine.GET("/health", handlers.Health)
	engine.GET("/youtube-webhook", handlerset.Webhook.Verify)
	engine.POST("/youtube-webhook", handlerset.Webhook.Notify)

	tasks := engine.Group("/", mw.Auth.RequireTaskToken())
	for _, endpoint := range router.Endpoints() {
		tasks.GET(endpoint+"/:id", handlerset.Pipeline.Handle(endpoint))
	}
	return engine
}
