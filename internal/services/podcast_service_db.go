package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "orpheus_go_backend/internal/errors"
	"orpheus_go_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPodcastStore talks to Postgres directly.
type GormPodcastStore struct {
	db *gorm.DB
}

func NewGormPodcastStore(db *gorm.DB) *GormPodcastStore {
	return &GormPodcastStore{db: db}
}

func (s *GormPodcastStore) ListPodcasts(ctx context.Context, filter models.PodcastFilter) ([]models.Podcast, error) {
	filter = filter.Normalize()
	q := s.db.WithContext(ctx).Model(&models.Podcast{})
	if filter.Search != "" {
		pattern := "%" + EscapeLike(filter.Search) + "%"
		q = q.Where("title ILIKE ? OR abstract ILIKE ? OR authors ILIKE ?", pattern, pattern, pattern)
	}
	if filter.Group != "" {
		q = q.Where("research_group = ?", filter.Group)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}

	podcasts := []models.Podcast{}
	if err := q.Order("created_at DESC").Limit(filter.Limit).Find(&podcasts).Error; err != nil {
		return nil, fmt.Errorf("list podcasts: %w", err)
	}
	return podcasts, nil
}

func (s *GormPodcastStore) GetPodcast(ctx context.Context, id uuid.UUID) (*models.Podcast, error) {
	var podcast models.Podcast
	err := s.db.WithContext(ctx).First(&podcast, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get podcast %s: %w", id, err)
	}
	return &podcast, nil
}

func (s *GormPodcastStore) CreatePodcast(ctx context.Context, podcast *models.Podcast) error {
	if err := s.db.WithContext(ctx).Create(podcast).Error; err != nil {
		return fmt.Errorf("insert podcast: %w", err)
	}
	return nil
}

func (s *GormPodcastStore) UpdatePodcast(ctx context.Context, id uuid.UUID, update models.PodcastUpdate) (*models.Podcast, error) {
	cols := update.Columns()
	cols["updated_at"] = time.Now().UTC()

	res := s.db.WithContext(ctx).Model(&models.Podcast{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return nil, fmt.Errorf("update podcast %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.ErrNotFound
	}
	return s.GetPodcast(ctx, id)
}

func (s *GormPodcastStore) DeletePodcast(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.Podcast{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete podcast %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
