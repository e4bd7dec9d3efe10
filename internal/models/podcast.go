package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Research groups a podcast can be filed under.
const (
	GroupWIN  = "WIN"
	GroupHLab = "h-lab"
)

var ResearchGroups = []string{GroupWIN, GroupHLab}

const MinPublishingYear = 1900

type Podcast struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title          string    `gorm:"not null" json:"title"`
	Abstract       string    `gorm:"not null;default:''" json:"abstract"`
	Authors        string    `gorm:"not null;default:''" json:"authors"`
	PublishingYear int       `gorm:"column:publishing_year;not null" json:"publishing_year"`
	ResearchGroup  string    `gorm:"column:research_group;not null;index" json:"research_group"`
	DOI            *string   `gorm:"column:doi" json:"doi"`
	Keywords       string    `gorm:"not null;default:''" json:"keywords"`
	CoverImageURL  string    `gorm:"column:cover_image_url;not null;default:''" json:"cover_image_url"`
	AudioURL       string    `gorm:"column:audio_url;not null;default:''" json:"audio_url"`
	Script         string    `gorm:"not null;default:''" json:"script"`
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Podcast) TableName() string {
	return "podcasts"
}

// PodcastUpdate holds the editable metadata. Nil fields are left untouched.
type PodcastUpdate struct {
	Title          *string `json:"title,omitempty"`
	Authors        *string `json:"authors,omitempty"`
	PublishingYear *int    `json:"publishing_year,omitempty"`
	ResearchGroup  *string `json:"research_group,omitempty"`
	DOI            *string `json:"doi,omitempty"`
	Keywords       *string `json:"keywords,omitempty"`
	Abstract       *string `json:"abstract,omitempty"`
}

func (u PodcastUpdate) IsEmpty() bool {
	return u.Title == nil && u.Authors == nil && u.PublishingYear == nil &&
		u.ResearchGroup == nil && u.DOI == nil && u.Keywords == nil && u.Abstract == nil
}

// Columns returns the update as a column map, which keeps zero values such as
// an emptied DOI that a struct update would skip.
func (u PodcastUpdate) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if u.Title != nil {
		cols["title"] = strings.TrimSpace(*u.Title)
	}
	if u.Authors != nil {
		cols["authors"] = *u.Authors
	}
	if u.PublishingYear != nil {
		cols["publishing_year"] = *u.PublishingYear
	}
	if u.ResearchGroup != nil {
		cols["research_group"] = *u.ResearchGroup
	}
	if u.DOI != nil {
		if doi := strings.TrimSpace(*u.DOI); doi != "" {
			cols["doi"] = doi
		} else {
			cols["doi"] = nil
		}
	}
	if u.Keywords != nil {
		cols["keywords"] = *u.Keywords
	}
	if u.Abstract != nil {
		cols["abstract"] = *u.Abstract
	}
	return cols
}

// Validate checks the fields that are present.
func (u PodcastUpdate) Validate(now time.Time) error {
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}
	if u.PublishingYear != nil {
		if err := ValidatePublishingYear(*u.PublishingYear, now); err != nil {
			return err
		}
	}
	if u.ResearchGroup != nil && !IsResearchGroup(*u.ResearchGroup) {
		return fmt.Errorf("research group must be one of %s", strings.Join(ResearchGroups, ", "))
	}
	return nil
}

func IsResearchGroup(group string) bool {
	for _, g := range ResearchGroups {
		if g == group {
			return true
		}
	}
	return false
}

// ValidatePublishingYear accepts 1900 up to one year past now.
func ValidatePublishingYear(year int, now time.Time) error {
	max := now.Year() + 1
	if year < MinPublishingYear || year > max {
		return fmt.Errorf("publishing year must be between %d and %d", MinPublishingYear, max)
	}
	return nil
}

// PodcastFilter narrows a podcast listing.
type PodcastFilter struct {
	Search string
	Group  string
	UserID *uuid.UUID
	Limit  int
}

const DefaultListLimit = 100

func (f PodcastFilter) Normalize() PodcastFilter {
	f.Search = strings.TrimSpace(f.Search)
	f.Group = strings.TrimSpace(f.Group)
	if f.Group == "all" {
		f.Group = ""
	}
	if f.Limit <= 0 || f.Limit > DefaultListLimit {
		f.Limit = DefaultListLimit
	}
	return f
}

// Validate rejects research groups outside the vocabulary. "all" and an empty
// group mean no filter.
func (f PodcastFilter) Validate() error {
	f = f.Normalize()
	if f.Group != "" && !IsResearchGroup(f.Group) {
		return fmt.Errorf("research group must be one of %s", strings.Join(ResearchGroups, ", "))
	}
	return nil
}

// CacheKey identifies the listing in the query cache. Owner listings are
// namespaced per user so a mutation can drop them without touching others.
func (f PodcastFilter) CacheKey() string {
	f = f.Normalize()
	// JSON keeps field boundaries, so no search text can imitate another filter.
	encoded, _ := json.Marshal(struct {
		Search string `json:"q"`
		Group  string `json:"g"`
		Limit  int    `json:"l"`
	}{f.Search, f.Group, f.Limit})
	sum := sha256.Sum256(encoded)
	hash := hex.EncodeToString(sum[:8])
	if f.UserID != nil {
		return fmt.Sprintf("%s%s:%s", UserPodcastsKeyPrefix, f.UserID.String(), hash)
	}
	return PodcastsKeyPrefix + hash
}

// Query cache key prefixes.
const (
	PodcastsKeyPrefix     = "podcasts:"
	PodcastKeyPrefix      = "podcast:"
	UserPodcastsKeyPrefix = "user-podcasts:"
	ProfileKeyPrefix      = "profile:"
)

func PodcastKey(id uuid.UUID) string {
	return PodcastKeyPrefix + id.String()
}

func ProfileKey(id uuid.UUID) string {
	return ProfileKeyPrefix + id.String()
}
