package app

import (
	"github.com/yungbote/clipforge-backend/internal/http/middleware"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

func wireMiddleware(log *logger.Logger, clients Clients) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: middleware.NewAuthMiddleware(log, clients.Tokens),
	}
}
