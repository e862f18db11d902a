package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/socialgraph/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FanoutRepository is the PostgreSQL outbox for new-post fan-out jobs
type FanoutRepository interface {
	Enqueue(ctx context.Context, postID, authorID string) (*models.FanoutJob, error)
	Claim(ctx context.Context, limit int) ([]models.FanoutJob, error)
	Complete(ctx context.Context, id string, delivered int) error
	Fail(ctx context.Context, id string, cause error, maxAttempts int) error
	RequeueStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

type postgresFanoutRepository struct {
	db *gorm.DB
}

func NewPostgresFanoutRepository(db *gorm.DB) FanoutRepository {
	return &postgresFanoutRepository{db: db}
}

func (r *postgresFanoutRepository) Enqueue(ctx context.Context, postID, authorID string) (*models.FanoutJob, error) {
	job := &models.FanoutJob{
		ID:       uuid.NewString(),
		PostID:   postID,
		AuthorID: authorID,
		Status:   models.FanoutPending,
	}
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

// Claim moves up to limit pending jobs to processing, oldest first. Rows
// locked by another worker are skipped.
func (r *postgresFanoutRepository) Claim(ctx context.Context, limit int) ([]models.FanoutJob, error) {
	var jobs []models.FanoutJob
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := claimable(tx, limit).Find(&jobs).Error
		if err != nil || len(jobs) == 0 {
			return err
		}

		ids := make([]string, len(jobs))
		for i := range jobs {
			ids[i] = jobs[i].ID
			jobs[i].Status = models.FanoutProcessing
			jobs[i].Attempts++
		}
		return tx.Model(&models.FanoutJob{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":     models.FanoutProcessing,
				"attempts":   gorm.Expr("attempts + 1"),
				"updated_at": time.Now(),
			}).Error
	})
	return jobs, err
}

// claimable selects the oldest pending jobs, skipping rows locked by another worker.
func claimable(tx *gorm.DB, limit int) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", models.FanoutPending).
		Order("created_at ASC").
		Limit(limit)
}

func (r *postgresFanoutRepository) Complete(ctx context.Context, id string, delivered int) error {
	return r.db.WithContext(ctx).Model(&models.FanoutJob{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     models.FanoutDone,
		"delivered":  delivered,
		"last_error": "",
	}).Error
}

// Fail returns a job to pending, or marks it failed once it has been
// attempted maxAttempts times.
func (r *postgresFanoutRepository) Fail(ctx context.Context, id string, cause error, maxAttempts int) error {
	return r.db.WithContext(ctx).Model(&models.FanoutJob{}).Where("id = ?", id).Updates(failure(cause, maxAttempts)).Error
}

// failure returns a job to pending, or marks it failed once it has used
// maxAttempts claims.
func failure(cause error, maxAttempts int) map[string]interface{} {
	return map[string]interface{}{
		"status":     gorm.Expr("CASE WHEN attempts >= ? THEN ? ELSE ? END", maxAttempts, models.FanoutFailed, models.FanoutPending),
		"last_error": cause.Error(),
	}
}

// RequeueStale returns jobs stuck in processing (a worker died mid-job) to pending.
func (r *postgresFanoutRepository) RequeueStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.FanoutJob{}).
		Where("status = ? AND updated_at < ?", models.FanoutProcessing, time.Now().Add(-olderThan)).
		Update("status", models.FanoutPending)
	return res.RowsAffected, res.Error
}
