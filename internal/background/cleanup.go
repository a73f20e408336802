package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// CleanupFunc deletes expired state and returns how many items it removed
type CleanupFunc func(ctx context.Context) (int64, error)

// Task is one periodic sweep
type Task struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Run      CleanupFunc
}

const defaultTaskTimeout = 30 * time.Second

// CleanupManager runs backstop sweeps (idle sessions, rate limit buckets, audit retention)
// on independent tickers. Sweeps only delete state already past its validity window.
type CleanupManager struct {
	tasks    []Task
	logger   *slog.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(logger *slog.Logger) *CleanupManager {
	return &CleanupManager{
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Register adds a task. Tasks with a non-positive interval are ignored.
func (cm *CleanupManager) Register(task Task) {
	if task.Interval <= 0 || task.Run == nil {
		cm.logger.Warn("cleanup task disabled", slog.String("task", task.Name))
		return
	}
	if task.Timeout <= 0 {
		task.Timeout = defaultTaskTimeout
	}
	cm.tasks = append(cm.tasks, task)
}

// Start launches every registered task and returns immediately
func (cm *CleanupManager) Start(ctx context.Context) {
	for _, task := range cm.tasks {
		cm.wg.Add(1)
		go func(task Task) {
			defer cm.wg.Done()
			cm.loop(ctx, task)
		}(task)
	}
}

func (cm *CleanupManager) loop(ctx context.Context, task Task) {
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runTask(ctx, task)

	for {
		select {
		case <-ticker.C:
			cm.runTask(ctx, task)
		case <-cm.stopCh:
			cm.logger.Info("cleanup task stopped", slog.String("task", task.Name))
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup task context cancelled", slog.String("task", task.Name))
			return
		}
	}
}

func (cm *CleanupManager) runTask(ctx context.Context, task Task) {
	cleanupCtx, cancel := context.WithTimeout(ctx, task.Timeout)
	defer cancel()

	removed, err := task.Run(cleanupCtx)
	if err != nil {
		cm.logger.Error("cleanup task failed",
			slog.String("task", task.Name),
			slog.Any("error", err))
		return
	}

	if removed > 0 {
		cm.logger.Info("cleanup task completed",
			slog.String("task", task.Name),
			slog.Int64("removed", removed))
	}
}

// Stop signals every task to stop and waits for them to return
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() {
		close(cm.stopCh)
	})
	cm.wg.Wait()
}
