package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "orpheus_go_backend/internal/errors"
	"orpheus_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
)

// PostgrestClient is satisfied by *supabase.Client and *postgrest.Client.
type PostgrestClient interface {
	From(table string) *postgrest.QueryBuilder
}

// RestPodcastStore reaches the podcasts table through Supabase's REST API.
type RestPodcastStore struct {
	client PostgrestClient
}

func NewRestPodcastStore(client PostgrestClient) *RestPodcastStore {
	return &RestPodcastStore{client: client}
}

func (s *RestPodcastStore) ListPodcasts(_ context.Context, filter models.PodcastFilter) ([]models.Podcast, error) {
	filter = filter.Normalize()
	q := s.client.From("podcasts").Select("*", "", false)
	if filter.Search != "" {
		pattern := postgrestPattern(filter.Search)
		q = q.Or(fmt.Sprintf("title.ilike.%[1]s,abstract.ilike.%[1]s,authors.ilike.%[1]s", pattern), "")
	}
	if filter.Group != "" {
		q = q.Eq("research_group", filter.Group)
	}
	if filter.UserID != nil {
		q = q.Eq("user_id", filter.UserID.String())
	}

	podcasts := []models.Podcast{}
	_, err := q.Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(filter.Limit, "").
		ExecuteTo(&podcasts)
	if err != nil {
		return nil, fmt.Errorf("list podcasts: %w", err)
	}
	if strings.Contains(filter.Search, "*") {
		matched := podcasts[:0]
		for _, p := range podcasts {
			if containsTerm(p, filter.Search) {
				matched = append(matched, p)
			}
		}
		podcasts = matched
	}
	return podcasts, nil
}

func (s *RestPodcastStore) GetPodcast(_ context.Context, id uuid.UUID) (*models.Podcast, error) {
	var rows []models.Podcast
	_, err := s.client.From("podcasts").Select("*", "", false).
		Eq("id", id.String()).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("get podcast %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &rows[0], nil
}

func (s *RestPodcastStore) CreatePodcast(_ context.Context, podcast *models.Podcast) error {
	row := map[string]interface{}{
		"id":              podcast.ID,
		"title":           podcast.Title,
		"abstract":        podcast.Abstract,
		"authors":         podcast.Authors,
		"publishing_year": podcast.PublishingYear,
		"research_group":  podcast.ResearchGroup,
		"doi":             podcast.DOI,
		"keywords":        podcast.Keywords,
		"cover_image_url": podcast.CoverImageURL,
		"audio_url":       podcast.AudioURL,
		"script":          podcast.Script,
		"user_id":         podcast.UserID,
	}

	var rows []models.Podcast
	if _, err := s.client.From("podcasts").Insert(row, false, "", "representation", "").ExecuteTo(&rows); err != nil {
		return fmt.Errorf("insert podcast: %w", err)
	}
	if len(rows) > 0 {
		*podcast = rows[0]
	}
	return nil
}

func (s *RestPodcastStore) UpdatePodcast(_ context.Context, id uuid.UUID, update models.PodcastUpdate) (*models.Podcast, error) {
	cols := update.Columns()
	cols["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	var rows []models.Podcast
	_, err := s.client.From("podcasts").Update(cols, "representation", "").
		Eq("id", id.String()).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("update podcast %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &rows[0], nil
}

func (s *RestPodcastStore) DeletePodcast(_ context.Context, id uuid.UUID) error {
	var rows []models.Podcast
	_, err := s.client.From("podcasts").Delete("representation", "").
		Eq("id", id.String()).
		ExecuteTo(&rows)
	if err != nil {
		return fmt.Errorf("delete podcast %s: %w", id, err)
	}
	if len(rows) == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
