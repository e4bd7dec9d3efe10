package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "orpheus_go_backend/internal/errors"
	"orpheus_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const DefaultSignedURLExpiry = time.Hour

// PodcastService holds the podcast use cases: cached reads, owner-only edits
// and deletes, and signed playback URLs.
//
// A read that misses the cache only stores its result if no invalidation ran
// since it started, so a slow read cannot put rows back that a concurrent
// update or delete already dropped.
type PodcastService struct {
	store   PodcastStore
	objects ObjectStore
	cache   QueryCache
	expiry  time.Duration
	now     func() time.Time

	cacheMu    sync.Mutex
	generation uint64
}

func NewPodcastService(store PodcastStore, objects ObjectStore, cache QueryCache, signedURLExpiry time.Duration) *PodcastService {
	if cache == nil {
		cache = NoopQueryCache{}
	}
	if signedURLExpiry <= 0 {
		signedURLExpiry = DefaultSignedURLExpiry
	}
	return &PodcastService{
		store:   store,
		objects: objects,
		cache:   cache,
		expiry:  signedURLExpiry,
		now:     time.Now,
	}
}

func (s *PodcastService) SignedURLExpiry() time.Duration {
	return s.expiry
}

func (s *PodcastService) List(ctx context.Context, filter models.PodcastFilter) ([]models.Podcast, error) {
	filter = filter.Normalize()
	if err := filter.Validate(); err != nil {
		return nil, apperrors.Validationf("%s", err.Error())
	}
	key := filter.CacheKey()

	var podcasts []models.Podcast
	if hit, err := s.cache.Get(ctx, key, &podcasts); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Query cache read failed")
	} else if hit {
		return podcasts, nil
	}

	gen := s.currentGeneration()
	podcasts, err := s.store.ListPodcasts(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.setIfCurrent(ctx, gen, key, podcasts)
	return podcasts, nil
}

func (s *PodcastService) Get(ctx context.Context, id uuid.UUID) (*models.Podcast, error) {
	key := models.PodcastKey(id)
	var cached models.Podcast
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	gen := s.currentGeneration()
	podcast, err := s.store.GetPodcast(ctx, id)
	if err != nil {
		return nil, err
	}
	s.setIfCurrent(ctx, gen, key, podcast)
	return podcast, nil
}

func (s *PodcastService) currentGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generation
}

func (s *PodcastService) setIfCurrent(ctx context.Context, gen uint64, key string, value interface{}) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if gen != s.generation {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Query cache write failed")
	}
}

// owned loads a podcast straight from the store and checks the owner.
func (s *PodcastService) owned(ctx context.Context, id, userID uuid.UUID) (*models.Podcast, error) {
	podcast, err := s.store.GetPodcast(ctx, id)
	if err != nil {
		return nil, err
	}
	if podcast.UserID != userID {
		return nil, apperrors.ErrForbidden
	}
	return podcast, nil
}

func (s *PodcastService) Update(ctx context.Context, id, userID uuid.UUID, update models.PodcastUpdate) (*models.Podcast, error) {
	if update.IsEmpty() {
		return nil, apperrors.Validationf("no fields to update")
	}
	if err := update.Validate(s.now()); err != nil {
		return nil, apperrors.Validationf("%s", err.Error())
	}
	if _, err := s.owned(ctx, id, userID); err != nil {
		return nil, err
	}

	podcast, err := s.store.UpdatePodcast(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id, userID)
	return podcast, nil
}

// Delete removes the audio object, then the row. A storage failure is logged
// and does not stop the row deletion; nothing is compensated.
func (s *PodcastService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	podcast, err := s.owned(ctx, id, userID)
	if err != nil {
		return err
	}

	logger := zerolog.Ctx(ctx)
	if podcast.AudioURL != "" {
		path := s.objects.ObjectPath(podcast.AudioURL)
		if err := s.objects.Remove(ctx, path); err != nil {
			logger.Error().Err(err).Str("path", path).Msg("Error deleting audio file")
		}
	}

	if err := s.store.DeletePodcast(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id, userID)
	logger.Info().Str("podcast_id", id.String()).Msg("Podcast deleted")
	return nil
}

func (s *PodcastService) invalidate(ctx context.Context, id, userID uuid.UUID) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation++
	err := s.cache.InvalidatePrefix(ctx,
		models.PodcastKey(id),
		models.PodcastsKeyPrefix,
		models.UserPodcastsKeyPrefix+userID.String(),
	)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Query cache invalidation failed")
	}
}

// SignedAudioURL returns a short-lived URL for the podcast's audio. Signed
// URLs are never cached.
func (s *PodcastService) SignedAudioURL(ctx context.Context, id uuid.UUID) (string, *models.Podcast, error) {
	podcast, err := s.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	path := s.objects.ObjectPath(podcast.AudioURL)
	if path == "" {
		return "", nil, apperrors.New404Error("Podcast has no audio")
	}
	url, err := s.objects.SignedURL(ctx, path, s.expiry)
	if err != nil {
		return "", nil, fmt.Errorf("Failed to get signed URL: %w", err)
	}
	return url, podcast, nil
}

// DownloadAudio returns the raw audio bytes for an attachment response.
func (s *PodcastService) DownloadAudio(ctx context.Context, id uuid.UUID) ([]byte, *models.Podcast, error) {
	podcast, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	path := s.objects.ObjectPath(podcast.AudioURL)
	if path == "" {
		return nil, nil, apperrors.New404Error("Podcast has no audio")
	}
	data, err := s.objects.Download(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	return data, podcast, nil
}
