package services

import (
	"context"
	"sync"
	"time"

	apperrors "orpheus_go_backend/internal/errors"
	"orpheus_go_backend/internal/models"
	"orpheus_go_backend/internal/utils/broker"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const finishedJobRetention = time.Hour

// JobService runs generations in the background and keeps their progress in
// memory. Runs are detached from the submitting request and cannot be
// cancelled; a semaphore bounds how many execute at once.
type JobService struct {
	generator Generator
	broker    *broker.Broker[models.GenerationJob]
	baseCtx   context.Context
	sem       chan struct{}
	now       func() time.Time

	mu   sync.RWMutex
	jobs map[uuid.UUID]*models.GenerationJob
	wg   sync.WaitGroup
}

func NewJobService(ctx context.Context, generator Generator, maxConcurrent int) *JobService {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &JobService{
		generator: generator,
		broker:    broker.NewBroker[models.GenerationJob](16),
		baseCtx:   ctx,
		sem:       make(chan struct{}, maxConcurrent),
		now:       time.Now,
		jobs:      make(map[uuid.UUID]*models.GenerationJob),
	}
}

// Submit validates the request synchronously and starts the run.
func (s *JobService) Submit(ctx context.Context, req GenerationRequest) (models.GenerationJob, error) {
	if err := s.generator.Validate(req); err != nil {
		return models.GenerationJob{}, err
	}

	now := s.now()
	job := &models.GenerationJob{
		ID:        uuid.New(),
		UserID:    req.UserID,
		Title:     req.Title,
		Stage:     models.StageQueued,
		State:     models.JobRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.pruneLocked(now)
	s.jobs[job.ID] = job
	snapshot := *job
	s.mu.Unlock()

	logger := zerolog.Ctx(ctx).With().Str("job_id", job.ID.String()).Logger()
	runCtx := logger.WithContext(s.baseCtx)

	s.wg.Add(1)
	go s.run(runCtx, job.ID, req)

	logger.Info().Str("user_id", req.UserID.String()).Msg("Generation job submitted")
	return snapshot, nil
}

func (s *JobService) run(ctx context.Context, id uuid.UUID, req GenerationRequest) {
	defer s.wg.Done()

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		s.finish(id, nil, ctx.Err())
		return
	}
	defer func() { <-s.sem }()

	podcast, err := s.generator.Generate(ctx, req, func(stage models.Stage) {
		if stage == models.StageDone {
			return
		}
		s.update(id, func(job *models.GenerationJob) {
			job.Stage = stage
			job.Percent = stage.Percent()
		})
	})
	s.finish(id, podcast, err)
}

func (s *JobService) finish(id uuid.UUID, podcast *models.Podcast, err error) {
	logger := zerolog.Ctx(s.baseCtx)
	s.update(id, func(job *models.GenerationJob) {
		job.Percent = 100
		if err != nil {
			job.State = models.JobFailed
			job.Error = err.Error()
			return
		}
		job.State = models.JobSucceeded
		job.Stage = models.StageDone
		job.PodcastID = &podcast.ID
	})
	if err != nil {
		logger.Error().Err(err).Str("job_id", id.String()).Msg("Error generating podcast")
	}
}

func (s *JobService) update(id uuid.UUID, mutate func(*models.GenerationJob)) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	mutate(job)
	job.UpdatedAt = s.now()
	snapshot := *job
	s.mu.Unlock()

	s.broker.Publish(id.String(), snapshot)
}

// Get returns a snapshot of a job owned by userID.
func (s *JobService) Get(id, userID uuid.UUID) (models.GenerationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return models.GenerationJob{}, apperrors.New404Error("Job not found")
	}
	if job.UserID != userID {
		return models.GenerationJob{}, apperrors.ErrForbidden
	}
	return *job, nil
}

// Subscribe streams snapshots of job id. The returned function must be called
// to release the subscription.
func (s *JobService) Subscribe(id uuid.UUID) (<-chan models.GenerationJob, func()) {
	topic := id.String()
	ch := s.broker.Subscribe(topic)
	return ch, func() { s.broker.Unsubscribe(topic, ch) }
}

// Wait blocks until every submitted run has finished.
func (s *JobService) Wait() {
	s.wg.Wait()
}

func (s *JobService) pruneLocked(now time.Time) {
	for id, job := range s.jobs {
		if job.Finished() && now.Sub(job.UpdatedAt) > finishedJobRetention {
			delete(s.jobs, id)
		}
	}
}
