package models

import (
	"time"

	"github.com/google/uuid"
)

type JobState string

const (
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// Stage names one step of a generation run.
type Stage string

const (
	StageQueued          Stage = "queued"
	StageExtractingText  Stage = "extracting_text"
	StageCheckingStorage Stage = "checking_storage"
	StageImagePrompt     Stage = "generating_image_prompt"
	StageCoverImage      Stage = "generating_cover"
	StageUploadingCover  Stage = "uploading_cover"
	StageScript          Stage = "generating_script"
	StageSpeech          Stage = "synthesizing_audio"
	StageUploadingAudio  Stage = "uploading_audio"
	StageSaving          Stage = "saving_podcast"
	StageDone            Stage = "done"
)

// Percent is the progress reported when a stage starts. Only StageDone reaches 100.
func (s Stage) Percent() int {
	switch s {
	case StageExtractingText:
		return 10
	case StageCheckingStorage:
		return 20
	case StageImagePrompt:
		return 30
	case StageCoverImage:
		return 45
	case StageUploadingCover:
		return 55
	case StageScript:
		return 65
	case StageSpeech:
		return 80
	case StageUploadingAudio:
		return 92
	case StageSaving:
		return 97
	case StageDone:
		return 100
	}
	return 0
}

// GenerationJob is the in-memory record of one pipeline run.
type GenerationJob struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Title     string     `json:"title"`
	Stage     Stage      `json:"stage"`
	Percent   int        `json:"percent"`
	State     JobState   `json:"state"`
	Error     string     `json:"error,omitempty"`
	PodcastID *uuid.UUID `json:"podcast_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (j GenerationJob) Finished() bool {
	return j.State != JobRunning
}
