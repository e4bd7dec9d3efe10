package services

import (
	"context"
	"errors"

	apperrors "orpheus_go_backend/internal/errors"
	"orpheus_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ProfileService struct {
	store    ProfileStore
	podcasts *PodcastService
	cache    QueryCache
}

func NewProfileService(store ProfileStore, podcasts *PodcastService, cache QueryCache) *ProfileService {
	if cache == nil {
		cache = NoopQueryCache{}
	}
	return &ProfileService{store: store, podcasts: podcasts, cache: cache}
}

// Get returns the caller's profile, creating an empty one on first access.
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	key := models.ProfileKey(userID)
	var cached models.Profile
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	profile, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		profile = &models.Profile{ID: userID}
		if err := s.store.CreateProfile(ctx, profile); err != nil {
			return nil, err
		}
		zerolog.Ctx(ctx).Info().Str("user_id", userID.String()).Msg("Created profile")
	} else if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, profile); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Query cache write failed")
	}
	return profile, nil
}

func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, update models.ProfileUpdate) (*models.Profile, error) {
	if len(update.Columns()) == 0 {
		return nil, apperrors.Validationf("no fields to update")
	}
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	profile, err := s.store.UpdateProfile(ctx, userID, update)
	if err != nil {
		return nil, err
	}
	if err := s.cache.InvalidatePrefix(ctx, models.ProfileKey(userID)); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Query cache invalidation failed")
	}
	return profile, nil
}

// Podcasts lists the caller's own podcasts, newest first.
func (s *ProfileService) Podcasts(ctx context.Context, userID uuid.UUID) ([]models.Podcast, error) {
	return s.podcasts.List(ctx, models.PodcastFilter{UserID: &userID})
}
