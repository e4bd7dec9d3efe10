package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "orpheus_go_backend/internal/errors"
	"orpheus_go_backend/internal/models"
	"orpheus_go_backend/internal/utils/storagepath"

	"github.com/google/uuid"
)

type fakePodcastStore struct {
	mu       sync.Mutex
	podcasts map[uuid.UUID]models.Podcast
	lists    int
	gets     int
	// afterList runs once a listing has been read, outside the lock.
	afterList func()
}

func newFakePodcastStore(podcasts ...models.Podcast) *fakePodcastStore {
	s := &fakePodcastStore{podcasts: make(map[uuid.UUID]models.Podcast)}
	for _, p := range podcasts {
		s.podcasts[p.ID] = p
	}
	return s
}

func (s *fakePodcastStore) ListPodcasts(_ context.Context, filter models.PodcastFilter) ([]models.Podcast, error) {
	out := s.list(filter)
	if s.afterList != nil {
		s.afterList()
	}
	return out, nil
}

func (s *fakePodcastStore) list(filter models.PodcastFilter) []models.Podcast {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	out := []models.Podcast{}
	for _, p := range s.podcasts {
		if filter.UserID != nil && p.UserID != *filter.UserID {
			continue
		}
		if filter.Group != "" && p.ResearchGroup != filter.Group {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *fakePodcastStore) GetPodcast(_ context.Context, id uuid.UUID) (*models.Podcast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	p, ok := s.podcasts[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (s *fakePodcastStore) CreatePodcast(_ context.Context, podcast *models.Podcast) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.podcasts[podcast.ID] = *podcast
	return nil
}

func (s *fakePodcastStore) UpdatePodcast(_ context.Context, id uuid.UUID, update models.PodcastUpdate) (*models.Podcast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.podcasts[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if update.Title != nil {
		p.Title = *update.Title
	}
	if update.Abstract != nil {
		p.Abstract = *update.Abstract
	}
	s.podcasts[id] = p
	return &p, nil
}

func (s *fakePodcastStore) DeletePodcast(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.podcasts[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(s.podcasts, id)
	return nil
}

type fakeProfileStore struct {
	profiles map[uuid.UUID]models.Profile
	creates  int
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[uuid.UUID]models.Profile)}
}

func (s *fakeProfileStore) GetProfile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (s *fakeProfileStore) CreateProfile(_ context.Context, profile *models.Profile) error {
	s.creates++
	s.profiles[profile.ID] = *profile
	return nil
}

func (s *fakeProfileStore) UpdateProfile(_ context.Context, id uuid.UUID, update models.ProfileUpdate) (*models.Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if update.Name != nil {
		p.Name = *update.Name
	}
	if update.Affiliation != nil {
		p.Affiliation = *update.Affiliation
	}
	if update.ResearchInterests != nil {
		p.ResearchInterests = *update.ResearchInterests
	}
	s.profiles[id] = p
	return &p, nil
}

type fakeObjectStore struct {
	storagepath.Layout
	mu        sync.Mutex
	objects   map[string][]byte
	removed   []string
	removeErr error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{
		Layout:  storagepath.SupabaseLayout("https://proj.supabase.co", storagepath.DefaultBucket),
		objects: make(map[string][]byte),
	}
}

func (s *fakeObjectStore) BucketExists(context.Context) (bool, error) { return true, nil }

func (s *fakeObjectStore) Upload(_ context.Context, path string, data []byte, _ UploadOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = data
	return nil
}

func (s *fakeObjectStore) SignedURL(_ context.Context, path string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://signed.example/%s?expires=%d", path, int(expiry.Seconds())), nil
}

func (s *fakeObjectStore) Download(_ context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[path]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return data, nil
}

func (s *fakeObjectStore) Remove(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, path)
	if s.removeErr != nil {
		return s.removeErr
	}
	delete(s.objects, path)
	return nil
}
