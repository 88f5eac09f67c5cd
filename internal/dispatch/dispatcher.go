package dispatch

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yungbote/clipforge-backend/internal/auth"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
)

// Dispatcher enqueues signed HTTP tasks targeting this service's own pipeline
// endpoints. Listeners and the controller's auto-advance both go through it.
type Dispatcher interface {
	Enqueue(ctx context.Context, endpoint, entityID string, delay time.Duration) error
}

type dispatcher struct {
	log     *logger.Logger
	queue   Queue
	tokens  *auth.TokenService
	baseURL string
}

func NewDispatcher(log *logger.Logger, queue Queue, tokens *auth.TokenService) (Dispatcher, error) {
	baseURL := strings.TrimSpace(os.Getenv("BACKEND_SERVICE_ADDRESS"))
	if baseURL == "" {
		return nil, fmt.Errorf("missing BACKEND_SERVICE_ADDRESS")
	}
	return &dispatcher{
		log:     log.With("service", "TaskDispatcher"),
		queue:   queue,
		tokens:  tokens,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (d *dispatcher) Enqueue(ctx context.Context, endpoint, entityID string, delay time.Duration) error {
	if endpoint == "" || entityID == "" {
		return fmt.Errorf("endpoint and entity id are required")
	}
	token, err := d.tokens.Mint(entityID, endpoint)
	if err != nil {
		return err
	}
	task := Task{
		URL:      fmt.Sprintf("%s/%s/%s", d.baseURL, endpoint, entityID),
		Token:    token,
		Endpoint: endpoint,
		EntityID: entityID,
		Due:      time.Now().Add(delay),
	}
	if err := d.queue.Push(ctx, task); err != nil {
		return fmt.Errorf("enqueue task %s/%s: %w", endpoint, entityID, err)
	}
	d.log.Info("Task enqueued", "endpoint", endpoint, "entity_id", entityID, "delay", delay.String())
	return nil
}
