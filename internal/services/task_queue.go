package services

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/pongarena/backend/internal/config"
	"github.com/pongarena/backend/pkg/logger"
)

const (
	TaskTypeStats = "stats:recompute"
)

// StatsTask asks for a player's derived statistics to be recomputed.
type StatsTask struct {
	UserID uint   `json:"user_id"`
	Reason string `json:"reason"` // login, oauth_login, match_recorded
}

// TaskQueue defines the interface for stats task processing.
type TaskQueue interface {
	// Enqueue adds a task to the queue
	Enqueue(task *StatsTask) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// NewTaskQueue builds a queue from config: Redis-backed when enabled and
// reachable, otherwise the in-process sync queue.
func NewTaskQueue(cfg *config.Config) TaskQueue {
	if cfg.Redis.Enabled {
		queue, err := NewAsyncQueue(&cfg.Redis)
		if err != nil {
			logger.Warnf("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
			return NewSyncQueue()
		}
		logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Redis.Addr)
		return queue
	}
	logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
	return NewSyncQueue()
}

// AsyncQueue implements TaskQueue using asynq (Redis-based).
type AsyncQueue struct {
	client *asynq.Client
}

// NewAsyncQueue creates a new Redis-based async queue.
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := asynq.NewClient(redisOpt)

	// Verify the connection before committing to async mode
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

// Enqueue adds a stats task to the async queue.
func (q *AsyncQueue) Enqueue(task *StatsTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	t := asynq.NewTask(TaskTypeStats, payload)
	info, err := q.client.Enqueue(t,
		asynq.Queue("default"),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return err
	}

	logger.Debugf("[AsyncQueue] Task enqueued: id=%s, queue=%s", info.ID, info.Queue)
	return nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue implements TaskQueue with synchronous in-process handling (no
// Redis). The default mode: a login recomputes stats in the same request.
type SyncQueue struct {
	processor func(context.Context, *StatsTask) error
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

// SetProcessor sets the function that handles tasks.
func (q *SyncQueue) SetProcessor(processor func(context.Context, *StatsTask) error) {
	q.processor = processor
}

// Enqueue runs the task immediately.
func (q *SyncQueue) Enqueue(task *StatsTask) error {
	if q.processor == nil {
		logger.Warnf("[SyncQueue] no processor set, task dropped")
		return nil
	}
	if err := q.processor(context.Background(), task); err != nil {
		logger.Warnf("[SyncQueue] task processing failed: %v", err)
		return err
	}
	return nil
}

func (q *SyncQueue) IsAsync() bool {
	return false
}

func (q *SyncQueue) Close() error {
	return nil
}
