// Package fanout delivers new_post notifications to an author's followers.
//
// Post creation only writes a row to the PostgreSQL outbox. The Worker
// claims pending rows, snapshots the author once per job and inserts the
// follower notifications in batches. Delivery is at least once: a job that
// fails halfway is retried from the start.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/socialgraph/backend/internal/metrics"
	"github.com/socialgraph/backend/internal/models"
	"github.com/socialgraph/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// staleAfter is how long a job may sit in processing before it is assumed
// orphaned by a dead worker.
const staleAfter = 5 * time.Minute

// recordTimeout bounds the Complete or Fail write after a job finishes.
const recordTimeout = 5 * time.Second

// Queue is the outbox the worker consumes.
type Queue interface {
	Claim(ctx context.Context, limit int) ([]models.FanoutJob, error)
	Complete(ctx context.Context, id string, delivered int) error
	Fail(ctx context.Context, id string, cause error, maxAttempts int) error
	RequeueStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Authors resolves the author of a job.
type Authors interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Notifier persists notifications.
type Notifier interface {
	Snapshot(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error)
	NotifyMany(ctx context.Context, recipients []primitive.ObjectID, typ models.NotificationType, payload map[string]interface{}) error
}

type Config struct {
	BatchSize    int
	Concurrency  int
	PollInterval time.Duration
	MaxAttempts  int
}

type Worker struct {
	queue    Queue
	authors  Authors
	notifier Notifier
	cfg      Config
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewWorker(queue Queue, authors Authors, notifier Notifier, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Worker{
		queue:    queue,
		authors:  authors,
		notifier: notifier,
		cfg:      cfg,
		metrics:  m,
		logger:   logger.With("component", "fanout"),
	}
}

// Run polls the outbox until ctx is cancelled. Jobs left in processing by a
// dead worker are requeued at start and every staleAfter.
func (w *Worker) Run(ctx context.Context) error {
	w.requeueStale(ctx)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	stale := time.NewTicker(staleAfter)
	defer stale.Stop()

	w.logger.Info("fan-out worker started", "poll_interval", w.cfg.PollInterval, "batch_size", w.cfg.BatchSize)
	for {
		if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("fan-out poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			w.logger.Info("fan-out worker stopped")
			return nil
		case <-stale.C:
			w.requeueStale(ctx)
		case <-ticker.C:
		}
	}
}

func (w *Worker) requeueStale(ctx context.Context) {
	if n, err := w.queue.RequeueStale(ctx, staleAfter); err != nil {
		w.logger.Error("requeue stale fan-out jobs", "error", err)
	} else if n > 0 {
		w.logger.Info("requeued stale fan-out jobs", "count", n)
	}
}

// Poll claims one round of pending jobs and processes them. It returns how
// many jobs were claimed.
func (w *Worker) Poll(ctx context.Context) (int, error) {
	jobs, err := w.queue.Claim(ctx, w.cfg.Concurrency)
	if err != nil {
		return 0, fmt.Errorf("claim fan-out jobs: %w", err)
	}
	for i := range jobs {
		w.handle(ctx, &jobs[i])
	}
	return len(jobs), nil
}

func (w *Worker) handle(ctx context.Context, job *models.FanoutJob) {
	start := time.Now()
	delivered, err := w.Process(ctx, job)
	w.metrics.FanoutDuration.Observe(time.Since(start).Seconds())

	// The outcome is recorded even when shutdown cancelled the job, so the
	// row does not stay in processing.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err != nil {
		w.metrics.FanoutJobsTotal.WithLabelValues("retry").Inc()
		w.logger.Error("fan-out job failed", "job_id", job.ID, "post_id", job.PostID, "attempt", job.Attempts, "error", err)
		if ferr := w.queue.Fail(ctx, job.ID, err, w.cfg.MaxAttempts); ferr != nil {
			w.logger.Error("record fan-out failure", "job_id", job.ID, "error", ferr)
		}
		return
	}

	w.metrics.FanoutJobsTotal.WithLabelValues("done").Inc()
	if cerr := w.queue.Complete(ctx, job.ID, delivered); cerr != nil {
		w.logger.Error("complete fan-out job", "job_id", job.ID, "error", cerr)
		return
	}
	w.logger.Debug("fan-out job done", "job_id", job.ID, "post_id", job.PostID, "delivered", delivered)
}

// Process notifies every follower of the job's author and returns the
// number of notifications written.
func (w *Worker) Process(ctx context.Context, job *models.FanoutJob) (int, error) {
	author, err := w.authors.GetUserByID(ctx, job.AuthorID)
	if errors.Is(err, repositories.ErrNotFound) {
		w.logger.Warn("fan-out author no longer exists", "job_id", job.ID, "author_id", job.AuthorID)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load author %s: %w", job.AuthorID, err)
	}

	followers, dropped := repositories.FilterValidIDs(author.Followers)
	if len(dropped) > 0 {
		w.logger.Warn("malformed ids in followers list", "user_id", job.AuthorID, "dropped", dropped)
	}
	if len(followers) == 0 {
		return 0, nil
	}

	payload, err := w.notifier.Snapshot(ctx, map[string]interface{}{
		models.DataPostID:   job.PostID,
		models.DataFromUser: job.AuthorID,
	})
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for _, batch := range chunk(followers, w.cfg.BatchSize) {
		batch := batch
		g.Go(func() error {
			return w.notifier.NotifyMany(gctx, batch, models.NotificationNewPost, payload)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(followers), nil
}

func chunk(ids []primitive.ObjectID, size int) [][]primitive.ObjectID {
	var out [][]primitive.ObjectID
	for len(ids) > size {
		out = append(out, ids[:size:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
