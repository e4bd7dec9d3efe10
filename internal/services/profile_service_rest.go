package services

import (
	"context"
	"fmt"
	"time"

	apperrors "orpheus_go_backend/internal/errors"
	"orpheus_go_backend/internal/models"

	"github.com/google/uuid"
)

type RestProfileStore struct {
	client PostgrestClient
}

func NewRestProfileStore(client PostgrestClient) *RestProfileStore {
	return &RestProfileStore{client: client}
}

func (s *RestProfileStore) GetProfile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	var rows []models.Profile
	_, err := s.client.From("profiles").Select("*", "", false).
		Eq("id", id.String()).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &rows[0], nil
}

func (s *RestProfileStore) CreateProfile(_ context.Context, profile *models.Profile) error {
	row := map[string]interface{}{
		"id":                 profile.ID,
		"name":               profile.Name,
		"affiliation":        profile.Affiliation,
		"research_interests": profile.ResearchInterests,
	}
	var rows []models.Profile
	if _, err := s.client.From("profiles").Insert(row, true, "id", "representation", "").ExecuteTo(&rows); err != nil {
		return fmt.Errorf("create profile %s: %w", profile.ID, err)
	}
	if len(rows) > 0 {
		*profile = rows[0]
	}
	return nil
}

func (s *RestProfileStore) UpdateProfile(_ context.Context, id uuid.UUID, update models.ProfileUpdate) (*models.Profile, error) {
	cols := update.Columns()
	cols["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	var rows []models.Profile
	_, err := s.client.From("profiles").Update(cols, "representation", "").
		Eq("id", id.String()).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("update profile %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &rows[0], nil
}
