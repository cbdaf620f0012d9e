package jobs

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"keycrack/internal/models"
)

var ErrNotFound = errors.New("jobs: job not found")

// Store persists jobs. Implementations return copies so callers never share
// a *models.Job with the runner.
type Store interface {
	Create(ctx context.Context, j *models.Job) error
	Update(ctx context.Context, j *models.Job) error
	Get(ctx context.Context, id string) (*models.Job, error)
	// List returns the newest jobs first; an empty userID lists everyone's.
	List(ctx context.Context, userID string, limit int) ([]models.Job, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) Create(ctx context.Context, j *models.Job) error {
	return s.db.WithContext(ctx).Create(j).Error
}

func (s *GormStore) Update(ctx context.Context, j *models.Job) error {
	return s.db.WithContext(ctx).Save(j).Error
}

func (s *GormStore) Get(ctx context.Context, id string) (*models.Job, error) {
	var j models.Job
	err := s.db.WithContext(ctx).First(&j, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *GormStore) List(ctx context.Context, userID string, limit int) ([]models.Job, error) {
	var out []models.Job
	q := s.db.WithContext(ctx).Order("created_at desc").Limit(limit)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
