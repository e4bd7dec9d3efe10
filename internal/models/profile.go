package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is keyed by the auth user id. Rows are created lazily on first read.
type Profile struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name              string    `gorm:"not null;default:''" json:"name"`
	Affiliation       string    `gorm:"not null;default:''" json:"affiliation"`
	ResearchInterests string    `gorm:"column:research_interests;not null;default:''" json:"research_interests"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

type ProfileUpdate struct {
	Name              *string `json:"name,omitempty"`
	Affiliation       *string `json:"affiliation,omitempty"`
	ResearchInterests *string `json:"research_interests,omitempty"`
}

func (u ProfileUpdate) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if u.Name != nil {
		cols["name"] = *u.Name
	}
	if u.Affiliation != nil {
		cols["affiliation"] = *u.Affiliation
	}
	if u.ResearchInterests != nil {
		cols["research_interests"] = *u.ResearchInterests
	}
	return cols
}
