package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"orpheus_go_backend/internal/auth"
	apperrors "orpheus_go_backend/internal/errors"
	"orpheus_go_backend/internal/models"
	"orpheus_go_backend/internal/services"
	"orpheus_go_backend/internal/utils/storagepath"
	"orpheus_go_backend/internal/wsocket"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "api-test-secret-with-enough-length-1234"
	allowedSite = "https://app.example"
	audioKey    = "owner/1700000000000-podcast-audio.mp3"
)

type memoryPodcasts struct {
	mu       sync.Mutex
	podcasts map[uuid.UUID]models.Podcast
	listErr  error
}

func (s *memoryPodcasts) ListPodcasts(_ context.Context, f models.PodcastFilter) ([]models.Podcast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := []models.Podcast{}
	for _, p := range s.podcasts {
		if f.Group != "" && p.ResearchGroup != f.Group {
			continue
		}
		if f.UserID != nil && p.UserID != *f.UserID {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Title+" "+p.Abstract+" "+p.Authors), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryPodcasts) GetPodcast(_ context.Context, id uuid.UUID) (*models.Podcast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.podcasts[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (s *memoryPodcasts) CreatePodcast(_ context.Context, p *models.Podcast) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.podcasts[p.ID] = *p
	return nil
}

func (s *memoryPodcasts) UpdatePodcast(_ context.Context, id uuid.UUID, u models.PodcastUpdate) (*models.Podcast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.podcasts[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if u.Title != nil {
		p.Title = *u.Title
	}
	s.podcasts[id] = p
	return &p, nil
}

func (s *memoryPodcasts) DeletePodcast(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.podcasts[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(s.podcasts, id)
	return nil
}

type memoryProfiles struct {
	profiles map[uuid.UUID]models.Profile
}

func (s *memoryProfiles) GetProfile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (s *memoryProfiles) CreateProfile(_ context.Context, p *models.Profile) error {
	s.profiles[p.ID] = *p
	return nil
}

func (s *memoryProfiles) UpdateProfile(_ context.Context, id uuid.UUID, u models.ProfileUpdate) (*models.Profile, error) {
	p := s.profiles[id]
	if u.Name != nil {
		p.Name = *u.Name
	}
	s.profiles[id] = p
	return &p, nil
}

type memoryObjects struct {
	storagepath.Layout
	objects map[string][]byte
}

func (s *memoryObjects) BucketExists(context.Context) (bool, error) { return true, nil }
func (s *memoryObjects) Upload(_ context.Context, path string, data []byte, _ services.UploadOptions) error {
	s.objects[path] = data
	return nil
}
func (s *memoryObjects) SignedURL(_ context.Context, path string, _ time.Duration) (string, error) {
	if path == "" {
		return "", apperrors.Validationf("path is required")
	}
	return "https://signed.example/" + path + "?token=abc", nil
}
func (s *memoryObjects) Download(_ context.Context, path string) ([]byte, error) {
	data, ok := s.objects[path]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return data, nil
}
func (s *memoryObjects) Remove(_ context.Context, path string) error {
	delete(s.objects, path)
	return nil
}

type acceptingGenerator struct{}

func (acceptingGenerator) Validate(req services.GenerationRequest) error {
	if req.Title == "" {
		return apperrors.Validationf("title is required")
	}
	if len(req.PDF) == 0 {
		return apperrors.Validationf("PDF file is empty")
	}
	return nil
}

func (acceptingGenerator) Generate(_ context.Context, req services.GenerationRequest, progress func(models.Stage)) (*models.Podcast, error) {
	progress(models.StageDone)
	return &models.Podcast{ID: uuid.New(), UserID: req.UserID, Title: req.Title}, nil
}

type imageRelayStub struct{}

func (imageRelayStub) FetchImage(_ context.Context, rawURL string) (*services.FetchedImage, error) {
	switch {
	case rawURL == "":
		return nil, apperrors.Validationf("Image URL is required")
	case strings.Contains(rawURL, "missing"):
		return nil, errors.New("Failed to fetch image: Not Found")
	}
	return &services.FetchedImage{Data: []byte("PNG"), ContentType: "image/png"}, nil
}

type harness struct {
	router   *gin.Engine
	podcasts *memoryPodcasts
	objects  *memoryObjects
	jobs     *services.JobService
	owner    uuid.UUID
	podcast  models.Podcast
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, nil)
}

func newHarnessWith(t *testing.T, configure func(*Deps)) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	owner := uuid.New()
	p := models.Podcast{
		ID:             uuid.New(),
		Title:          "Attention Is All You Need",
		Authors:        "Ashish Vaswani, Noam Shazeer",
		Abstract:       "The dominant sequence transduction models",
		PublishingYear: 2017,
		ResearchGroup:  models.GroupWIN,
		CoverImageURL:  "https://proj.supabase.co/storage/v1/object/public/podcasts/owner/covers/1-abc.png",
		AudioURL:       "https://proj.supabase.co/storage/v1/object/public/podcasts/" + audioKey,
		Script:         strings.Repeat("word ", 300),
		UserID:         owner,
		CreatedAt:      time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	podcasts := &memoryPodcasts{podcasts: map[uuid.UUID]models.Podcast{p.ID: p}}
	objects := &memoryObjects{
		Layout:  storagepath.SupabaseLayout("https://proj.supabase.co", storagepath.DefaultBucket),
		objects: map[string][]byte{audioKey: []byte("ID3audio")},
	}

	podcastService := services.NewPodcastService(podcasts, objects, services.NewMemoryQueryCache(time.Minute), time.Hour)
	profileService := services.NewProfileService(&memoryProfiles{profiles: map[uuid.UUID]models.Profile{}}, podcastService, nil)
	jobs := services.NewJobService(context.Background(), acceptingGenerator{}, 1)

	r := gin.New()
	deps := Deps{
		Podcasts:       podcastService,
		Profiles:       profileService,
		Jobs:           jobs,
		Relay:          imageRelayStub{},
		Citations:      services.NewCitationService("https://orpheus.example"),
		Feed:           services.NewFeedService("https://orpheus.example"),
		Verifier:       auth.NewJWTVerifier(testSecret),
		Progress:       wsocket.NewHandler(jobs, websocket.Upgrader{}, 0),
		AllowedOrigins: []string{allowedSite},
		PublicBaseURL:  "https://orpheus.example",
		MaxUploadBytes: 1 << 20,
		Backends:       map[string]string{"database": "memory"},
	}
	if configure != nil {
		configure(&deps)
	}
	SetupRoutes(r, deps)

	return &harness{router: r, podcasts: podcasts, objects: objects, jobs: jobs, owner: owner, podcast: p}
}

func bearer(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID.String(),
		"email": "user@example.com",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	w := h.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"memory"`)
}

func TestListPodcasts(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		query string
		count int
	}{
		{"", 1},
		{"?q=attention", 1},
		{"?q=transformer", 0},
		{"?group=WIN", 1},
		{"?group=h-lab", 0},
		{"?group=all", 1},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := h.do(httptest.NewRequest(http.MethodGet, "/api/podcasts"+tt.query, nil))
			require.Equal(t, http.StatusOK, w.Code)
			var got []models.Podcast
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Len(t, got, tt.count)
		})
	}

	w := h.do(httptest.NewRequest(http.MethodGet, "/api/podcasts?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(httptest.NewRequest(http.MethodGet, "/api/podcasts?group=physics", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown groups are rejected")
	w = h.do(httptest.NewRequest(http.MethodGet, "/feed.xml?group=WIN%7C", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPodcast(t *testing.T) {
	h := newHarness(t)

	w := h.do(httptest.NewRequest(http.MethodGet, "/api/podcasts/"+h.podcast.ID.String(), nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(httptest.NewRequest(http.MethodGet, "/api/podcasts/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(httptest.NewRequest(http.MethodGet, "/api/podcasts/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestUpdatePodcast(t *testing.T) {
	h := newHarness(t)
	body := `{"title":"Renamed"}`
	path := "/api/podcasts/" + h.podcast.ID.String()

	req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(body))
	w := h.do(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPut, path, strings.NewReader(body))
	req.Header.Set("Authorization", bearer(t, uuid.New()))
	w = h.do(req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodPut, path, strings.NewReader(`{"publishing_year":1700}`))
	req.Header.Set("Authorization", bearer(t, h.owner))
	w = h.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodPut, path, strings.NewReader(body))
	req.Header.Set("Authorization", bearer(t, h.owner))
	w = h.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Renamed")
}

func TestDeletePodcast(t *testing.T) {
	h := newHarness(t)
	path := "/api/podcasts/" + h.podcast.ID.String()

	// Warm the list cache so the delete must invalidate it.
	w := h.do(httptest.NewRequest(http.MethodGet, "/api/podcasts", nil))
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodDelete, path, nil)
	req.Header.Set("Authorization", bearer(t, uuid.New()))
	w = h.do(req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodDelete, path, nil)
	req.Header.Set("Authorization", bearer(t, h.owner))
	w = h.do(req)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.NotContains(t, h.objects.objects, audioKey)

	w = h.do(httptest.NewRequest(http.MethodGet, "/api/podcasts", nil))
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestSignedURL(t *testing.T) {
	h := newHarness(t)
	w := h.do(httptest.NewRequest(http.MethodGet, "/api/podcasts/"+h.podcast.ID.String()+"/signed-url", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		SignedURL string `json:"signedUrl"`
		ExpiresIn int    `json:"expiresIn"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "https://signed.example/"+audioKey+"?token=abc", body.SignedURL)
	assert.Equal(t, 3600, body.ExpiresIn)
}

func TestAudioRedirect(t *testing.T) {
	h := newHarness(t)
	path := "/api/podcasts/" + h.podcast.ID.String() + "/audio"

	w := h.do(httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://signed.example/"+audioKey+"?token=abc", w.Header().Get("Location"))

	// 300 words at 150 wpm is two minutes; half way is 60 seconds.
	w = h.do(httptest.NewRequest(http.MethodGet, path+"?at=50", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasSuffix(w.Header().Get("Location"), "#t=60"))

	w = h.do(httptest.NewRequest(http.MethodGet, path+"?at=half", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDownload(t *testing.T) {
	h := newHarness(t)
	w := h.do(httptest.NewRequest(http.MethodGet, "/api/podcasts/"+h.podcast.ID.String()+"/download", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="Attention Is All You Need.mp3"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "ID3audio", w.Body.String())
}

func TestCitation(t *testing.T) {
	h := newHarness(t)
	w := h.do(httptest.NewRequest(http.MethodGet, "/api/podcasts/"+h.podcast.ID.String()+"/citation", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "@article{vaswani2017attention")
}

func multipartPDF(t *testing.T, fields map[string]string, pdf []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if pdf != nil {
		fw, err := mw.CreateFormFile("pdf", "paper.pdf")
		require.NoError(t, err)
		_, err = fw.Write(pdf)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestGenerateAndPollJob(t *testing.T) {
	h := newHarness(t)
	uid := uuid.New()
	fields := map[string]string{"title": "Paper", "research_group": "WIN", "publishing_year": "2020"}

	body, contentType := multipartPDF(t, fields, []byte("%PDF-1.4 fake"))
	req := httptest.NewRequest(http.MethodPost, "/api/generate", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", bearer(t, uid))
	w := h.do(req)
	require.Equal(t, http.StatusAccepted, w.Code)

	var accepted struct {
		JobID uuid.UUID `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	h.jobs.Wait()

	req = httptest.NewRequest(http.MethodGet, "/api/jobs/"+accepted.JobID.String(), nil)
	req.Header.Set("Authorization", bearer(t, uid))
	w = h.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	var job models.GenerationJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, models.JobSucceeded, job.State)
	assert.Equal(t, 100, job.Percent)

	req = httptest.NewRequest(http.MethodGet, "/api/jobs/"+accepted.JobID.String(), nil)
	req.Header.Set("Authorization", bearer(t, uuid.New()))
	w = h.do(req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGenerateRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	uid := uuid.New()

	tests := []struct {
		name   string
		fields map[string]string
		pdf    []byte
	}{
		{"missing pdf", map[string]string{"title": "Paper"}, nil},
		{"missing title", map[string]string{"publishing_year": "2020"}, []byte("%PDF")},
		{"bad year", map[string]string{"title": "Paper", "publishing_year": "soon"}, []byte("%PDF")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartPDF(t, tt.fields, tt.pdf)
			req := httptest.NewRequest(http.MethodPost, "/api/generate", body)
			req.Header.Set("Content-Type", contentType)
			req.Header.Set("Authorization", bearer(t, uid))
			w := h.do(req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestProfileRoutes(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", bearer(t, h.owner))
	w := h.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), h.owner.String())

	req = httptest.NewRequest(http.MethodPut, "/api/profile", strings.NewReader(`{"name":"Ada"}`))
	req.Header.Set("Authorization", bearer(t, h.owner))
	w = h.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Ada"`)

	req = httptest.NewRequest(http.MethodGet, "/api/profile/podcasts", nil)
	req.Header.Set("Authorization", bearer(t, h.owner))
	w = h.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []models.Podcast
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	assert.Len(t, mine, 1)
}

func TestFetchImage(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"missing url", `{}`, http.StatusBadRequest, `{"error":"Image URL is required"}`},
		{"no body", ``, http.StatusBadRequest, `{"error":"Image URL is required"}`},
		{"upstream failure", `{"imageUrl":"https://img.example/missing.png"}`, http.StatusInternalServerError, `{"error":"Failed to fetch image: Not Found"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/functions/fetch-image", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := h.do(req)
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/functions/fetch-image", strings.NewReader(`{"imageUrl":"https://img.example/a.png"}`))
	req.Header.Set("Origin", "https://anywhere.example")
	w := h.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "PNG", w.Body.String())
}

func TestFetchImagePreflight(t *testing.T) {
	h := newHarness(t)

	w := h.do(httptest.NewRequest(http.MethodOptions, "/functions/fetch-image", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	req := httptest.NewRequest(http.MethodOptions, "/functions/fetch-image", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w = h.do(req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRestrictsAPI(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/api/podcasts", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := h.do(req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/podcasts", nil)
	req.Header.Set("Origin", allowedSite)
	w = h.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, allowedSite, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestEmbed(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/embed?group=WIN", nil)
	req.Header.Set("Origin", "https://blog.example")
	w := h.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "frame-ancestors *", w.Header().Get("Content-Security-Policy"))
	assert.Contains(t, w.Body.String(), "Attention Is All You Need")
	assert.Contains(t, w.Body.String(), "https://orpheus.example/podcast/"+h.podcast.ID.String())

	h.podcasts.listErr = errors.New("database down")
	w = h.do(httptest.NewRequest(http.MethodGet, "/embed?group=h-lab", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No podcasts yet.")
}

func TestFeed(t *testing.T) {
	h := newHarness(t)
	w := h.do(httptest.NewRequest(http.MethodGet, "/feed.xml?group=WIN", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/rss+xml")

	feed, err := gofeed.NewParser().Parse(strings.NewReader(w.Body.String()))
	require.NoError(t, err)
	require.Len(t, feed.Items, 1)
	require.Len(t, feed.Items[0].Enclosures, 1)
	assert.Equal(t,
		fmt.Sprintf("http://example.com/api/podcasts/%s/audio", h.podcast.ID),
		feed.Items[0].Enclosures[0].URL)
}

func TestFeedIgnoresForwardedHeadersFromUntrustedPeers(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/feed.xml", nil)
	req.Header.Set("X-Forwarded-Host", "evil.example")
	req.Header.Set("X-Forwarded-Proto", "https")
	w := h.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "evil.example")
	assert.Contains(t, w.Body.String(), fmt.Sprintf("http://example.com/api/podcasts/%s/audio", h.podcast.ID))
}

func TestFeedHonoursForwardedHeadersFromTrustedProxy(t *testing.T) {
	// httptest requests come from 192.0.2.1.
	h := newHarnessWith(t, func(d *Deps) { d.TrustedProxies = []string{"192.0.2.0/24"} })
	req := httptest.NewRequest(http.MethodGet, "/feed.xml", nil)
	req.Header.Set("X-Forwarded-Host", "api.orpheus.example")
	req.Header.Set("X-Forwarded-Proto", "https")
	w := h.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), fmt.Sprintf("https://api.orpheus.example/api/podcasts/%s/audio", h.podcast.ID))

	req = httptest.NewRequest(http.MethodGet, "/feed.xml", nil)
	req.Header.Set("X-Forwarded-Proto", "javascript")
	w = h.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "javascript:")
}

func TestFeedPrefersConfiguredBaseURL(t *testing.T) {
	h := newHarnessWith(t, func(d *Deps) {
		d.APIBaseURL = "https://api.orpheus.example"
		d.TrustedProxies = []string{"192.0.2.1"}
	})
	req := httptest.NewRequest(http.MethodGet, "/feed.xml", nil)
	req.Header.Set("X-Forwarded-Host", "evil.example")
	w := h.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "evil.example")
}

func TestParseProxies(t *testing.T) {
	got := parseProxies([]string{"10.0.0.0/8", " 192.0.2.1 ", "::1", "not-an-ip"})
	require.Len(t, got, 3)
	assert.True(t, fromTrustedProxy("10.1.2.3", got))
	assert.True(t, fromTrustedProxy("192.0.2.1", got))
	assert.True(t, fromTrustedProxy("::1", got))
	assert.False(t, fromTrustedProxy("192.0.2.2", got))
	assert.False(t, fromTrustedProxy("", got))
}

func TestNotConfiguredBackends(t *testing.T) {
	gin.SetMode(gin.TestMode)
	podcastService := services.NewPodcastService(services.UnconfiguredPodcastStore{}, services.UnconfiguredObjectStore{}, nil, 0)
	jobs := services.NewJobService(context.Background(), acceptingGenerator{}, 1)
	r := gin.New()
	SetupRoutes(r, Deps{
		Podcasts:  podcastService,
		Profiles:  services.NewProfileService(services.UnconfiguredProfileStore{}, podcastService, nil),
		Jobs:      jobs,
		Relay:     imageRelayStub{},
		Citations: services.NewCitationService(""),
		Feed:      services.NewFeedService(""),
		Verifier:  auth.UnconfiguredVerifier{},
		Progress:  wsocket.NewHandler(jobs, websocket.Upgrader{}, 0),
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/podcasts", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_CONFIGURED")

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
