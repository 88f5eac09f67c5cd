package app

import (
	"github.com/yungbote/clipforge-backend/internal/http/handlers"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
)

type Handlers struct {
	Pipeline *handlers.PipelineHandler
	Webhook  *handlers.WebhookHandler
}

func wireHandlers(log *logger.Logger, clients Clients, reposet Repos, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Pipeline: handlers.NewPipelineHandler(log, services.Controller),
		Webhook:  handlers.NewWebhookHandler(log, reposet.Channel, reposet.Video, services.Ledger, clients.Dispatcher),
	}
}
