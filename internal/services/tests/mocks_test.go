package services_test

import (
	"context"
	"time"

	"orpheus_go_backend/internal/models"
	"orpheus_go_backend/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Validate(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockExtractor) ExtractText(data []byte) (string, error) {
	args := m.Called(data)
	return args.String(0), args.Error(1)
}

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) BucketExists(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockObjectStore) Upload(ctx context.Context, path string, data []byte, opts services.UploadOptions) error {
	args := m.Called(ctx, path, data, opts)
	return args.Error(0)
}

func (m *MockObjectStore) SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, path, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) Download(ctx context.Context, path string) ([]byte, error) {
	args := m.Called(ctx, path)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockObjectStore) Remove(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *MockObjectStore) PublicURL(path string) string {
	return "https://cdn.example/podcasts/" + path
}

func (m *MockObjectStore) ObjectPath(stored string) string {
	return stored
}

// MockAI covers text, image and speech generation.
type MockAI struct {
	mock.Mock
}

func (m *MockAI) Complete(ctx context.Context, req services.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockAI) GenerateImage(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockAI) Synthesize(ctx context.Context, text, instructions string) ([]byte, error) {
	args := m.Called(ctx, text, instructions)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchImage(ctx context.Context, rawURL string) (*services.FetchedImage, error) {
	args := m.Called(ctx, rawURL)
	img, _ := args.Get(0).(*services.FetchedImage)
	return img, args.Error(1)
}

type MockPodcastStore struct {
	mock.Mock
}

func (m *MockPodcastStore) ListPodcasts(ctx context.Context, filter models.PodcastFilter) ([]models.Podcast, error) {
	args := m.Called(ctx, filter)
	podcasts, _ := args.Get(0).([]models.Podcast)
	return podcasts, args.Error(1)
}

func (m *MockPodcastStore) GetPodcast(ctx context.Context, id uuid.UUID) (*models.Podcast, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.Podcast)
	return p, args.Error(1)
}

func (m *MockPodcastStore) CreatePodcast(ctx context.Context, podcast *models.Podcast) error {
	args := m.Called(ctx, podcast)
	return args.Error(0)
}

func (m *MockPodcastStore) UpdatePodcast(ctx context.Context, id uuid.UUID, update models.PodcastUpdate) (*models.Podcast, error) {
	args := m.Called(ctx, id, update)
	p, _ := args.Get(0).(*models.Podcast)
	return p, args.Error(1)
}

func (m *MockPodcastStore) DeletePodcast(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
