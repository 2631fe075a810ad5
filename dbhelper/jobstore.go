package dbhelper

import (
	"context"
	"errors"
	"fmt"

	"tryonapi/models"

	"gorm.io/gorm"
)

var ErrJobNotFound = errors.New("job not found")

// JobStore persists async try-on jobs.
type JobStore interface {
	Create(ctx context.Context, job *models.TryOnJob) error
	Get(ctx context.Context, id uint) (*models.TryOnJob, error)
	Save(ctx context.Context, job *models.TryOnJob) error
}

type GormJobStore struct {
	DB *gorm.DB
}

func NewGormJobStore(db *gorm.DB) *GormJobStore {
	return &GormJobStore{DB: db}
}

func (s *GormJobStore) Create(ctx context.Context, job *models.TryOnJob) error {
	if err := s.DB.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create try-on job: %w", err)
	}
	return nil
}

func (s *GormJobStore) Get(ctx context.Context, id uint) (*models.TryOnJob, error) {
	var job models.TryOnJob
	if err := s.DB.WithContext(ctx).First(&job, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to load try-on job %d: %w", id, err)
	}
	return &job, nil
}

func (s *GormJobStore) Save(ctx context.Context, job *models.TryOnJob) error {
	if err := s.DB.WithContext(ctx).Save(job).Error; err != nil {
		return fmt.Errorf("failed to save try-on job %d: %w", job.ID, err)
	}
	return nil
}
