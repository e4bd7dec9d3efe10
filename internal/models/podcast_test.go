package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidatePublishingYear(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, ValidatePublishingYear(1900, now))
	assert.NoError(t, ValidatePublishingYear(2026, now))
	assert.Error(t, ValidatePublishingYear(1899, now))
	assert.Error(t, ValidatePublishingYear(2027, now))
}

func TestPodcastUpdateValidate(t *testing.T) {
	now := time.Now()
	blank := "   "
	badGroup := "physics"
	group := GroupHLab
	year := now.Year()

	assert.Error(t, PodcastUpdate{Title: &blank}.Validate(now))
	assert.Error(t, PodcastUpdate{ResearchGroup: &badGroup}.Validate(now))
	assert.NoError(t, PodcastUpdate{ResearchGroup: &group, PublishingYear: &year}.Validate(now))
}

func TestPodcastUpdateColumns(t *testing.T) {
	title := "  Attention Is All You Need "
	emptyDOI := ""
	cols := PodcastUpdate{Title: &title, DOI: &emptyDOI}.Columns()

	assert.Equal(t, "Attention Is All You Need", cols["title"])
	v, ok := cols["doi"]
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.NotContains(t, cols, "abstract")
	assert.True(t, PodcastUpdate{}.IsEmpty())
}

func TestPodcastFilterCacheKey(t *testing.T) {
	t.Run("equivalent filters share a key", func(t *testing.T) {
		a := PodcastFilter{Search: " attention ", Group: "all"}
		b := PodcastFilter{Search: "attention", Limit: DefaultListLimit}
		assert.Equal(t, a.CacheKey(), b.CacheKey())
		assert.True(t, strings.HasPrefix(a.CacheKey(), PodcastsKeyPrefix))
	})

	t.Run("owner listings are namespaced", func(t *testing.T) {
		uid := uuid.New()
		key := PodcastFilter{UserID: &uid}.CacheKey()
		assert.True(t, strings.HasPrefix(key, UserPodcastsKeyPrefix+uid.String()))
	})

	t.Run("separators in values do not collide", func(t *testing.T) {
		assert.NotEqual(t,
			PodcastFilter{Search: "a|WIN"}.CacheKey(),
			PodcastFilter{Search: "a", Group: "WIN|"}.CacheKey())
		assert.NotEqual(t,
			PodcastFilter{Search: `a","g":"WIN`}.CacheKey(),
			PodcastFilter{Search: "a", Group: GroupWIN}.CacheKey())
	})

	t.Run("different groups differ", func(t *testing.T) {
		assert.NotEqual(t,
			PodcastFilter{Group: GroupWIN}.CacheKey(),
			PodcastFilter{Group: GroupHLab}.CacheKey())
	})
}

func TestPodcastFilterValidate(t *testing.T) {
	assert.NoError(t, PodcastFilter{}.Validate())
	assert.NoError(t, PodcastFilter{Group: "all"}.Validate())
	assert.NoError(t, PodcastFilter{Group: " " + GroupHLab + " "}.Validate())
	assert.Error(t, PodcastFilter{Group: "WIN|"}.Validate())
	assert.Error(t, PodcastFilter{Group: "physics"}.Validate())
}

func TestStagePercent(t *testing.T) {
	stages := []Stage{StageExtractingText, StageCheckingStorage, StageImagePrompt, StageCoverImage,
		StageUploadingCover, StageScript, StageSpeech, StageUploadingAudio, StageSaving}
	prev := 0
	for _, s := range stages {
		assert.Greater(t, s.Percent(), prev, s)
		assert.Less(t, s.Percent(), 100, s)
		prev = s.Percent()
	}
	assert.Equal(t, 100, StageDone.Percent())
}
