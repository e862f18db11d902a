package fanout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/socialgraph/backend/internal/metrics"
	"github.com/socialgraph/backend/internal/models"
	"github.com/socialgraph/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeQueue struct {
	mu        sync.Mutex
	pending   []models.FanoutJob
	completed map[string]int
	failed    map[string]error
	requeued  int
}

func newFakeQueue(jobs ...models.FanoutJob) *fakeQueue {
	return &fakeQueue{pending: jobs, completed: map[string]int{}, failed: map[string]error{}}
}

func (q *fakeQueue) Claim(_ context.Context, limit int) ([]models.FanoutJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if limit > len(q.pending) {
		limit = len(q.pending)
	}
	jobs := q.pending[:limit]
	q.pending = q.pending[limit:]
	return jobs, nil
}

func (q *fakeQueue) Complete(ctx context.Context, id string, delivered int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.completed[id] = delivered
	return nil
}

func (q *fakeQueue) Fail(ctx context.Context, id string, cause error, _ int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failed[id] = cause
	return nil
}

func (q *fakeQueue) RequeueStale(context.Context, time.Duration) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.requeued++
	return 0, nil
}

type fakeAuthors map[string]*models.User

func (a fakeAuthors) GetUserByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := a[id]; ok {
		return u, nil
	}
	return nil, repositories.ErrNotFound
}

type fakeNotifier struct {
	mu         sync.Mutex
	recipients []primitive.ObjectID
	batches    int
	payloads   []map[string]interface{}
	err        error
	// onNotify runs before each batch is recorded.
	onNotify   func()
}

func (n *fakeNotifier) Snapshot(_ context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	out := map[string]interface{}{models.DataFromUsername: "alice"}
	for k, v := range data {
		out[k] = v
	}
	return out, nil
}

func (n *fakeNotifier) NotifyMany(ctx context.Context, recipients []primitive.ObjectID, typ models.NotificationType, payload map[string]interface{}) error {
	if n.onNotify != nil {
		n.onNotify()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	n.batches++
	n.recipients = append(n.recipients, recipients...)
	n.payloads = append(n.payloads, payload)
	return nil
}

func newTestWorker(q Queue, a Authors, n Notifier, batch int) *Worker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWorker(q, a, n, Config{BatchSize: batch, Concurrency: 2}, metrics.New(prometheus.NewRegistry()), logger)
}

func followerIDs(n int) ([]string, []primitive.ObjectID) {
	hex := make([]string, n)
	ids := make([]primitive.ObjectID, n)
	for i := range ids {
		ids[i] = primitive.NewObjectID()
		hex[i] = ids[i].Hex()
	}
	return hex, ids
}

func TestWorkerDeliversToEveryFollower(t *testing.T) {
	author := &models.User{ID: primitive.NewObjectID(), Username: "alice"}
	hex, ids := followerIDs(7)
	author.Followers = append(hex, "not-an-id")

	job := models.FanoutJob{ID: "job-1", PostID: primitive.NewObjectID().Hex(), AuthorID: author.ID.Hex()}
	q := newFakeQueue(job)
	n := &fakeNotifier{}
	w := newTestWorker(q, fakeAuthors{author.ID.Hex(): author}, n, 3)

	claimed, err := w.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, claimed)

	assert.Equal(t, 7, q.completed["job-1"])
	assert.Equal(t, 3, n.batches)

	got := append([]primitive.ObjectID(nil), n.recipients...)
	sort.Slice(got, func(i, j int) bool { return got[i].Hex() < got[j].Hex() })
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })
	assert.Equal(t, ids, got)

	for _, p := range n.payloads {
		assert.Equal(t, job.PostID, p[models.DataPostID])
		assert.Equal(t, author.ID.Hex(), p[models.DataFromUser])
		assert.Equal(t, "alice", p[models.DataFromUsername])
	}
}

func TestWorkerNoFollowers(t *testing.T) {
	author := &models.User{ID: primitive.NewObjectID()}
	q := newFakeQueue(models.FanoutJob{ID: "job-1", AuthorID: author.ID.Hex()})
	n := &fakeNotifier{}
	w := newTestWorker(q, fakeAuthors{author.ID.Hex(): author}, n, 10)

	_, err := w.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, q.completed["job-1"])
	assert.Zero(t, n.batches)
}

func TestWorkerMissingAuthorCompletes(t *testing.T) {
	q := newFakeQueue(models.FanoutJob{ID: "job-1", AuthorID: primitive.NewObjectID().Hex()})
	w := newTestWorker(q, fakeAuthors{}, &fakeNotifier{}, 10)

	_, err := w.Poll(context.Background())
	require.NoError(t, err)
	assert.Contains(t, q.completed, "job-1")
	assert.Empty(t, q.failed)
}

func TestWorkerRecordsFailure(t *testing.T) {
	author := &models.User{ID: primitive.NewObjectID()}
	author.Followers, _ = followerIDs(2)
	q := newFakeQueue(models.FanoutJob{ID: "job-1", AuthorID: author.ID.Hex()})
	n := &fakeNotifier{err: errors.New("mongo down")}
	w := newTestWorker(q, fakeAuthors{author.ID.Hex(): author}, n, 10)

	_, err := w.Poll(context.Background())
	require.NoError(t, err)
	require.Contains(t, q.failed, "job-1")
	assert.ErrorContains(t, q.failed["job-1"], "mongo down")
	assert.NotContains(t, q.completed, "job-1")
}

func TestWorkerRecordsFailureAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	author := &models.User{ID: primitive.NewObjectID()}
	author.Followers, _ = followerIDs(3)
	q := newFakeQueue(models.FanoutJob{ID: "job-1", AuthorID: author.ID.Hex()})
	n := &fakeNotifier{onNotify: cancel}
	w := newTestWorker(q, fakeAuthors{author.ID.Hex(): author}, n, 10)

	_, err := w.Poll(ctx)
	require.NoError(t, err)
	require.Contains(t, q.failed, "job-1")
	assert.ErrorIs(t, q.failed["job-1"], context.Canceled)
	assert.NotContains(t, q.completed, "job-1")
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := newFakeQueue()
	w := newTestWorker(q, fakeAuthors{}, &fakeNotifier{}, 10)
	w.cfg.PollInterval = 10 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, 1, q.requeued)
}

func TestChunk(t *testing.T) {
	_, ids := followerIDs(5)
	chunks := chunk(ids, 2)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[2], 1)
	assert.Empty(t, chunk(nil, 2))
}
