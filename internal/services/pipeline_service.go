package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "orpheus_go_backend/internal/errors"
	"orpheus_go_backend/internal/models"
	"orpheus_go_backend/internal/utils/retry"
	"orpheus_go_backend/internal/utils/storagepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	coverCacheControl = "31536000"
	audioCacheControl = "3600"
)

var errBucketNotFound = errors.New(`Storage bucket not found or not accessible. Please verify that the bucket exists, ` +
	`is set to public and that the service credentials can read it (error code: BUCKET_NOT_FOUND)`)

// GenerationRequest is one uploaded paper plus its metadata form.
type GenerationRequest struct {
	UserID         uuid.UUID
	PDF            []byte
	Title          string
	Abstract       string
	Authors        string
	PublishingYear int
	ResearchGroup  string
	DOI            string
	Keywords       string
}

func (r GenerationRequest) promptData() PromptData {
	return PromptData{
		Title:    r.Title,
		Abstract: r.Abstract,
		Authors:  r.Authors,
		Keywords: r.Keywords,
	}
}

type PipelineConfig struct {
	BucketCheck retry.Policy
	Upload      retry.Policy
	// MaxPaperChars caps the paper text sent with the script prompt. Zero sends everything.
	MaxPaperChars int
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BucketCheck:   retry.Policy{Attempts: 3, Delay: time.Second, Backoff: retry.Fixed},
		Upload:        retry.Policy{Attempts: 3, Delay: time.Second, Backoff: retry.Linear},
		MaxPaperChars: 120000,
	}
}

type PipelineDeps struct {
	Extractor TextExtractor
	Store     ObjectStore
	Text      TextGenerator
	Images    ImageGenerator
	Speech    SpeechSynthesizer
	Fetcher   ImageFetcher
	Podcasts  PodcastStore
	Cache     QueryCache
	Prompts   *Prompts
}

// PipelineService turns a paper into a stored podcast. Steps run strictly in
// sequence and the first failure aborts the run. Nothing is rolled back: a
// failure after the cover upload leaves that object in the bucket and no row.
type PipelineService struct {
	deps PipelineDeps
	cfg  PipelineConfig
	now  func() time.Time
}

func NewPipelineService(deps PipelineDeps, cfg PipelineConfig) *PipelineService {
	if deps.Cache == nil {
		deps.Cache = NoopQueryCache{}
	}
	return &PipelineService{deps: deps, cfg: cfg, now: time.Now}
}

// Validate checks the request before any external call is made.
func (s *PipelineService) Validate(req GenerationRequest) error {
	if req.UserID == uuid.Nil {
		return apperrors.New401Error()
	}
	if strings.TrimSpace(req.Title) == "" {
		return apperrors.Validationf("title is required")
	}
	if !models.IsResearchGroup(req.ResearchGroup) {
		return apperrors.Validationf("research group must be one of %s", strings.Join(models.ResearchGroups, ", "))
	}
	if err := models.ValidatePublishingYear(req.PublishingYear, s.now()); err != nil {
		return apperrors.Validationf("%s", err.Error())
	}
	return s.deps.Extractor.Validate(req.PDF)
}

func (s *PipelineService) Generate(ctx context.Context, req GenerationRequest, progress func(models.Stage)) (*models.Podcast, error) {
	logger := zerolog.Ctx(ctx).With().Str("user_id", req.UserID.String()).Str("title", req.Title).Logger()
	report := func(stage models.Stage) {
		logger.Debug().Str("stage", string(stage)).Msg("Generation stage")
		if progress != nil {
			progress(stage)
		}
	}

	report(models.StageExtractingText)
	paperText, err := s.deps.Extractor.ExtractText(req.PDF)
	if err != nil {
		return nil, fmt.Errorf("No PDF text extracted: %w", err)
	}

	report(models.StageCheckingStorage)
	if err := s.checkBucket(ctx); err != nil {
		return nil, err
	}

	report(models.StageImagePrompt)
	imagePrompt := s.coverPrompt(ctx, &logger, req)

	report(models.StageCoverImage)
	tempURL, err := s.deps.Images.GenerateImage(ctx, imagePrompt)
	if err != nil {
		return nil, err
	}
	if tempURL == "" {
		return nil, errors.New("Failed to generate cover image")
	}

	report(models.StageUploadingCover)
	coverURL, err := s.saveCover(ctx, req.UserID, tempURL)
	if err != nil {
		return nil, fmt.Errorf("Failed to save cover image: %w", err)
	}

	report(models.StageScript)
	data := req.promptData()
	data.PaperText = truncateRunes(paperText, s.cfg.MaxPaperChars)
	scriptReq, err := s.deps.Prompts.ScriptRequest(data)
	if err != nil {
		return nil, err
	}
	script, err := s.deps.Text.Complete(ctx, scriptReq)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(script) == "" {
		return nil, errors.New("Failed to generate script")
	}
	if banned := s.deps.Prompts.BannedWordsIn(script); len(banned) > 0 {
		logger.Warn().Strs("words", banned).Msg("Script uses discouraged adjectives")
	}

	report(models.StageSpeech)
	audio, err := s.deps.Speech.Synthesize(ctx, script, s.deps.Prompts.SpeechInstructions)
	if err != nil {
		return nil, err
	}

	report(models.StageUploadingAudio)
	audioPath := storagepath.AudioPath(req.UserID, s.now())
	if err := s.upload(ctx, audioPath, audio, UploadOptions{ContentType: "audio/mpeg", CacheControl: audioCacheControl}); err != nil {
		return nil, fmt.Errorf("Failed to upload audio file: %w", err)
	}

	report(models.StageSaving)
	podcast := &models.Podcast{
		ID:             uuid.New(),
		Title:          strings.TrimSpace(req.Title),
		Abstract:       req.Abstract,
		Authors:        req.Authors,
		PublishingYear: req.PublishingYear,
		ResearchGroup:  req.ResearchGroup,
		Keywords:       req.Keywords,
		CoverImageURL:  coverURL,
		AudioURL:       s.deps.Store.PublicURL(audioPath),
		Script:         script,
		UserID:         req.UserID,
	}
	if doi := strings.TrimSpace(req.DOI); doi != "" {
		podcast.DOI = &doi
	}
	if err := s.deps.Podcasts.CreatePodcast(ctx, podcast); err != nil {
		return nil, fmt.Errorf("Failed to save podcast: %w", err)
	}

	if err := s.deps.Cache.InvalidatePrefix(ctx, models.PodcastsKeyPrefix, models.UserPodcastsKeyPrefix+req.UserID.String()); err != nil {
		logger.Warn().Err(err).Msg("Failed to invalidate podcast listings")
	}
	report(models.StageDone)
	logger.Info().Str("podcast_id", podcast.ID.String()).Msg("Podcast generated")
	return podcast, nil
}

func (s *PipelineService) checkBucket(ctx context.Context) error {
	return retry.Do(ctx, s.cfg.BucketCheck, func(ctx context.Context, attempt int) error {
		ok, err := s.deps.Store.BucketExists(ctx)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotConfigured) {
				return retry.Permanent(err)
			}
			return err
		}
		if !ok {
			return errBucketNotFound
		}
		return nil
	})
}

// coverPrompt asks the model for visual concepts, then for an image prompt
// built on them. Any failure falls back to a fixed prompt.
func (s *PipelineService) coverPrompt(ctx context.Context, logger *zerolog.Logger, req GenerationRequest) string {
	data := req.promptData()
	fallback := func(err error) string {
		logger.Warn().Err(err).Msg("Error generating image prompt, using fallback")
		return s.deps.Prompts.Fallback(data)
	}

	conceptsReq, err := s.deps.Prompts.ConceptsRequest(data)
	if err != nil {
		return fallback(err)
	}
	concepts, err := s.deps.Text.Complete(ctx, conceptsReq)
	if err != nil {
		return fallback(err)
	}

	data.Concepts = concepts
	promptReq, err := s.deps.Prompts.ImagePromptRequest(data)
	if err != nil {
		return fallback(err)
	}
	prompt, err := s.deps.Text.Complete(ctx, promptReq)
	if err != nil {
		return fallback(err)
	}
	return prompt
}

func (s *PipelineService) saveCover(ctx context.Context, userID uuid.UUID, tempURL string) (string, error) {
	img, err := s.deps.Fetcher.FetchImage(ctx, tempURL)
	if err != nil {
		return "", err
	}
	path := storagepath.CoverPath(userID, s.now())
	if err := s.upload(ctx, path, img.Data, UploadOptions{ContentType: "image/png", CacheControl: coverCacheControl}); err != nil {
		return "", fmt.Errorf("Failed to upload image: %w", err)
	}
	return s.deps.Store.PublicURL(path), nil
}

func (s *PipelineService) upload(ctx context.Context, path string, data []byte, opts UploadOptions) error {
	return retry.Do(ctx, s.cfg.Upload, func(ctx context.Context, attempt int) error {
		err := s.deps.Store.Upload(ctx, path, data, opts)
		if errors.Is(err, apperrors.ErrNotConfigured) {
			return retry.Permanent(err)
		}
		return err
	})
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
