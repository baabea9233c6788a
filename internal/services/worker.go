package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/pongarena/backend/internal/config"
	"github.com/pongarena/backend/pkg/logger"
)

// Worker consumes stats tasks from the Redis queue. Only started when Redis
// is enabled; in sync mode tasks never reach a queue.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor func(context.Context, *StatsTask) error
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

func NewWorker(cfg *config.RedisConfig) *Worker {
	if !cfg.Enabled {
		return nil
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Warnf("[Worker] error processing task %s: %v", task.Type(), err)
			}),
		},
	)

	return &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
	}
}

// SetProcessor sets the function that handles stats tasks.
func (w *Worker) SetProcessor(processor func(context.Context, *StatsTask) error) {
	w.processor = processor
}

// Start begins processing tasks.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.mux.HandleFunc(TaskTypeStats, w.handleStatsTask)

	w.running = true
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		logger.Infof("[Worker] starting async worker")
		if err := w.server.Run(w.mux); err != nil {
			logger.Errorf("[Worker] server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the worker.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	logger.Infof("[Worker] shutting down")
	w.server.Shutdown()
	w.running = false
	w.wg.Wait()
}

func (w *Worker) handleStatsTask(ctx context.Context, t *asynq.Task) error {
	var task StatsTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		return err
	}

	if w.processor == nil {
		logger.Warnf("[Worker] no processor set")
		return nil
	}

	return w.processor(ctx, &task)
}
