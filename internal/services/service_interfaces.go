package services

import (
	"context"
	"time"

	"orpheus_go_backend/internal/models"

	"github.com/google/uuid"
)

// PodcastStore persists podcast rows. Implementations return
// errors.ErrNotFound for missing rows.
type PodcastStore interface {
	ListPodcasts(ctx context.Context, filter models.PodcastFilter) ([]models.Podcast, error)
	GetPodcast(ctx context.Context, id uuid.UUID) (*models.Podcast, error)
	CreatePodcast(ctx context.Context, podcast *models.Podcast) error
	UpdatePodcast(ctx context.Context, id uuid.UUID, update models.PodcastUpdate) (*models.Podcast, error)
	DeletePodcast(ctx context.Context, id uuid.UUID) error
}

type ProfileStore interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	CreateProfile(ctx context.Context, profile *models.Profile) error
	UpdateProfile(ctx context.Context, id uuid.UUID, update models.ProfileUpdate) (*models.Profile, error)
}

type UploadOptions struct {
	ContentType  string
	CacheControl string
}

// ObjectStore is the single media bucket holding covers and audio.
type ObjectStore interface {
	BucketExists(ctx context.Context) (bool, error)
	Upload(ctx context.Context, path string, data []byte, opts UploadOptions) error
	SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)
	Download(ctx context.Context, path string) ([]byte, error)
	Remove(ctx context.Context, path string) error
	PublicURL(path string) string
	ObjectPath(stored string) string
}

type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

type TextGenerator interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ImageGenerator returns a temporary URL of the rendered image.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// SpeechSynthesizer returns mp3 bytes.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, instructions string) ([]byte, error)
}

type TextExtractor interface {
	Validate(data []byte) error
	ExtractText(data []byte) (string, error)
}

type FetchedImage struct {
	Data        []byte
	ContentType string
}

type ImageFetcher interface {
	FetchImage(ctx context.Context, rawURL string) (*FetchedImage, error)
}

// QueryCache stores JSON-encoded query results under string keys.
type QueryCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	InvalidatePrefix(ctx context.Context, prefixes ...string) error
}

// Generator runs the podcast generation pipeline.
type Generator interface {
	Validate(req GenerationRequest) error
	Generate(ctx context.Context, req GenerationRequest, progress func(models.Stage)) (*models.Podcast, error)
}
