package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/clipforge-backend/internal/platform/logger"
)

// Task is one enqueued HTTP GET against a pipeline endpoint, carrying its
// short-lived bearer token. Due is when the task becomes eligible.
type Task struct {
	URL      string    `json:"url"`
	Token    string    `json:"token"`
	Endpoint string    `json:"endpoint"`
	EntityID string    `json:"entity_id"`
	Due      time.Time `json:"due"`
}

// Queue is a delayed at-least-once task queue on a redis sorted set, scored
// by due time. Handlers are idempotent, so redelivery after a crashed pop is
// acceptable.
type Queue interface {
	Push(ctx context.Context, task Task) error
	// PopDue removes and returns up to limit tasks whose due time has passed.
	PopDue(ctx context.Context, limit int) ([]Task, error)
	Close() error
}

type redisQueue struct {
	log *logger.Logger
	rdb *goredis.Client
	key string
}

func NewQueue(log *logger.Logger) (Queue, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	key := strings.TrimSpace(os.Getenv("REDIS_TASK_QUEUE_KEY"))
	if key == "" {
		key = "pipeline:tasks"
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &redisQueue{
		log: log.With("service", "TaskQueue"),
		rdb: rdb,
		key: key,
	}, nil
}

func (q *redisQueue) Push(ctx context.Context, task Task) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	return q.rdb.ZAdd(ctx, q.key, goredis.Z{
		Score:  float64(task.Due.UnixMilli()),
		Member: string(raw),
	}).Err()
}

func (q *redisQueue) PopDue(ctx context.Context, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = 10
	}
	now := float64(time.Now().UnixMilli())
	members, err := q.rdb.ZRangeByScore(ctx, q.key, &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%f", now),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range due tasks: %w", err)
	}
	out := make([]Task, 0, len(members))
	for _, m := range members {
		removed, err := q.rdb.ZRem(ctx, q.key, m).Result()
		if err != nil {
			return out, fmt.Errorf("remove task: %w", err)
		}
		// Another worker beat us to this member; skip it.
		if removed == 0 {
			continue
		}
		var task Task
		if err := json.Unmarshal([]byte(m), &task); err != nil {
			q.log.Warn("Dropping malformed task", "error", err)
			continue
		}
		out = append(out, task)
	}
	return out, nil
}

func (q *redisQueue) Close() error {
	return q.rdb.Close()
}
