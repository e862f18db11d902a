package models

import "time"

type FanoutStatus string

const (
	FanoutPending    FanoutStatus = "pending"
	FanoutProcessing FanoutStatus = "processing"
	FanoutDone       FanoutStatus = "done"
	FanoutFailed     FanoutStatus = "failed"
)

// FanoutJob is an outbox row (PostgreSQL) asking the worker to notify every
// follower of AuthorID about PostID.
type FanoutJob struct {
	ID        string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	PostID    string       `json:"post_id" gorm:"size:24;index"`
	AuthorID  string       `json:"author_id" gorm:"size:24;index"`
	Status    FanoutStatus `json:"status" gorm:"size:20;index:idx_fanout_status_created"`
	Attempts  int          `json:"attempts"`
	LastError string       `json:"last_error"`
	Delivered int          `json:"delivered"`
	CreatedAt time.Time    `json:"created_at" gorm:"index:idx_fanout_status_created"`
	UpdatedAt time.Time    `json:"updated_at"`
}
