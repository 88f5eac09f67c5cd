package dispatch

import (
	"context"
	"net/http"
	"time"

	"github.com/yungbote/clipforge-backend/internal/platform/logger"
)

// Worker drains the delayed queue and performs the HTTP GETs. Stage handlers
// run inside those requests, so the worker's client timeout bounds a stage.
type Worker struct {
	log        *logger.Logger
	queue      Queue
	httpClient *http.Client
}

func NewWorker(log *logger.Logger, queue Queue) *Worker {
	return &Worker{
		log:   log.With("component", "TaskWorker"),
		queue: queue,
		httpClient: &http.Client{
			Timeout: 30 * time.Minute,
		},
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tasks, err := w.queue.PopDue(ctx, 10)
				if err != nil {
					w.log.Warn("PopDue failed", "error", err)
					continue
				}
				for _, task := range tasks {
					go w.perform(ctx, task)
				}
			}
		}
	}()
}

func (w *Worker) perform(ctx context.Context, task Task) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.URL, nil)
	if err != nil {
		w.log.Error("Task request build failed", "url", task.URL, "error", err)
		return
	}
	req.Header.Set("X-Auth-Token", "Bearer "+task.Token)

	start := time.Now()
	resp, err := w.httpClient.Do(req)
	if err != nil {
		w.log.Error("Task request failed", "endpoint", task.Endpoint, "entity_id", task.EntityID, "error", err)
		return
	}
	defer resp.Body.Close()
	w.log.Info("Task completed",
		"endpoint", task.Endpoint,
		"entity_id", task.EntityID,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
