package services

import (
	"context"
	"fmt"
	"time"

	apperrors "orpheus_go_backend/internal/errors"
	"orpheus_go_backend/internal/models"

	"github.com/google/uuid"
)

// The Unconfigured* types stand in for backends without credentials so the
// server can start and answer 503 instead of crashing.

func notConfigured(what string) error {
	return fmt.Errorf("%s: %w", what, apperrors.ErrNotConfigured)
}

type UnconfiguredPodcastStore struct{}

func (UnconfiguredPodcastStore) ListPodcasts(context.Context, models.PodcastFilter) ([]models.Podcast, error) {
	return nil, notConfigured("database")
}

func (UnconfiguredPodcastStore) GetPodcast(context.Context, uuid.UUID) (*models.Podcast, error) {
	return nil, notConfigured("database")
}

func (UnconfiguredPodcastStore) CreatePodcast(context.Context, *models.Podcast) error {
	return notConfigured("database")
}

func (UnconfiguredPodcastStore) UpdatePodcast(context.Context, uuid.UUID, models.PodcastUpdate) (*models.Podcast, error) {
	return nil, notConfigured("database")
}

func (UnconfiguredPodcastStore) DeletePodcast(context.Context, uuid.UUID) error {
	return notConfigured("database")
}

type UnconfiguredProfileStore struct{}

func (UnconfiguredProfileStore) GetProfile(context.Context, uuid.UUID) (*models.Profile, error) {
	return nil, notConfigured("database")
}

func (UnconfiguredProfileStore) CreateProfile(context.Context, *models.Profile) error {
	return notConfigured("database")
}

func (UnconfiguredProfileStore) UpdateProfile(context.Context, uuid.UUID, models.ProfileUpdate) (*models.Profile, error) {
	return nil, notConfigured("database")
}

type UnconfiguredObjectStore struct{}

func (UnconfiguredObjectStore) BucketExists(context.Context) (bool, error) {
	return false, notConfigured("storage")
}

func (UnconfiguredObjectStore) Upload(context.Context, string, []byte, UploadOptions) error {
	return notConfigured("storage")
}

func (UnconfiguredObjectStore) SignedURL(context.Context, string, time.Duration) (string, error) {
	return "", notConfigured("storage")
}

func (UnconfiguredObjectStore) Download(context.Context, string) ([]byte, error) {
	return nil, notConfigured("storage")
}

func (UnconfiguredObjectStore) Remove(context.Context, string) error {
	return notConfigured("storage")
}

func (UnconfiguredObjectStore) PublicURL(path string) string { return path }

func (UnconfiguredObjectStore) ObjectPath(stored string) string { return stored }

// UnconfiguredAI covers text, image and speech generation.
type UnconfiguredAI struct{}

func (UnconfiguredAI) Complete(context.Context, CompletionRequest) (string, error) {
	return "", notConfigured("language model")
}

func (UnconfiguredAI) GenerateImage(context.Context, string) (string, error) {
	return "", notConfigured("image generation")
}

func (UnconfiguredAI) Synthesize(context.Context, string, string) ([]byte, error) {
	return nil, notConfigured("speech synthesis")
}
