package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCleanupInterval is the default interval between cleanup runs.
const DefaultCleanupInterval = 10 * time.Minute

// CleanupJob periodically purges idle sessions so that memory held by users who
// never come back is released. Lookups purge on their own, so the job is optional.
type CleanupJob struct {
	sessionSvc SessionService
	interval   time.Duration

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewCleanupJob creates a new cleanup job.
func NewCleanupJob(svc SessionService, interval time.Duration) *CleanupJob {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}

	return &CleanupJob{
		sessionSvc: svc,
		interval:   interval,
	}
}

// Start begins the periodic cleanup job.
// This method is non-blocking and starts the cleanup in a goroutine.
func (j *CleanupJob) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return
	}

	j.running = true
	j.stopChan = make(chan struct{})
	j.done = make(chan struct{})

	go j.run(ctx, j.stopChan, j.done)

	slog.Info("session cleanup job started", "interval", j.interval)
}

// Stop stops the cleanup job and waits for the loop to exit.
func (j *CleanupJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	close(j.stopChan)
	done := j.done
	j.running = false
	j.mu.Unlock()

	<-done
	slog.Info("session cleanup job stopped")
}

// RunOnce executes a single cleanup run immediately.
func (j *CleanupJob) RunOnce() int {
	return j.sessionSvc.PurgeExpired()
}

// IsRunning returns whether the cleanup job is currently running.
func (j *CleanupJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *CleanupJob) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.mu.Lock()
			if j.stopChan == stop {
				j.running = false
			}
			j.mu.Unlock()
			return
		case <-stop:
			return
		case <-ticker.C:
			if removed := j.RunOnce(); removed > 0 {
				slog.Info("session cleanup completed", "removed", removed)
			}
		}
	}
}
