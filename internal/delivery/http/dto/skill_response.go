package dto

import (
	"time"

	"skill-registry/internal/domain/skill"

	"github.com/google/uuid"
)

type LinkReferenceResponse struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type LogEntryResponse struct {
	ProfileID   uuid.UUID `json:"profileId"`
	EvaluatorID uuid.UUID `json:"evaluatorId"`
	Level       int       `json:"level"`
	Version     int64     `json:"version"`
	RecordedAt  time.Time `json:"recordedAt"`
}

type SkillResponse struct {
	ID             uuid.UUID               `json:"id"`
	Name           string                  `json:"name"`
	Description    string                  `json:"description"`
	LinkReferences []LinkReferenceResponse `json:"linkReferences"`
	Log            []LogEntryResponse      `json:"log"`
	CreatedAt      time.Time               `json:"createdAt"`
	UpdatedAt      time.Time               `json:"updatedAt"`
}

// SkillSummaryResponse is the list shape; the log is only served per skill.
type SkillSummaryResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	LogSize     int       `json:"logSize"`
}

func NewSkillResponse(s skill.Skill) SkillResponse {
	links := make([]LinkReferenceResponse, 0, len(s.LinkReferences))
	for _, l := range s.LinkReferences {
		links = append(links, LinkReferenceResponse{Name: l.Name, URL: l.URL})
	}
	entries := make([]LogEntryResponse, 0, len(s.Log))
	for _, e := range s.Log {
		entries = append(entries, LogEntryResponse{
			ProfileID:   e.ProfileID,
			EvaluatorID: e.EvaluatorID,
			Level:       e.Level,
			Version:     e.Version,
			RecordedAt:  e.RecordedAt,
		})
	}
	return SkillResponse{
		ID:             s.ID,
		Name:           s.Name,
		Description:    s.Description,
		LinkReferences: links,
		Log:            entries,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func NewSkillSummaries(items []skill.Skill) []SkillSummaryResponse {
	out := make([]SkillSummaryResponse, 0, len(items))
	for _, s := range items {
		out = append(out, SkillSummaryResponse{ID: s.ID, Name: s.Name, Description: s.Description, LogSize: len(s.Log)})
	}
	return out
}
