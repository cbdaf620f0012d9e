package models

import "time"

type JobStatus string

const (
	JobQueued   JobStatus = "queued"
	JobRunning  JobStatus = "running"
	JobFound    JobStatus = "found"
	JobNotFound JobStatus = "not_found"
	JobFailed   JobStatus = "failed"
	JobCanceled JobStatus = "canceled"
)

// Terminal reports whether no further transitions follow s.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobFound, JobNotFound, JobFailed, JobCanceled:
		return true
	}
	return false
}

// Job is one key recovery run over an uploaded pair set.
type Job struct {
	ID         string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     string     `gorm:"type:uuid;index;not null" json:"user_id"`
	Label      string     `gorm:"not null" json:"label"`
	PairCount  int        `gorm:"not null" json:"pair_count"`
	Pairs      JSONB      `gorm:"type:jsonb;not null" json:"-"`
	Status     JobStatus  `gorm:"index;not null" json:"status"`
	KeyHex     *string    `json:"key_hex,omitempty"`
	Tried      uint64     `json:"tried"`
	Hits       uint64     `json:"hits"`
	Collisions int        `json:"collisions"`
	Error      *string    `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Job) TableName() string { return "jobs" }
