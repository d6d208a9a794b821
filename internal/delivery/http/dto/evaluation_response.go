package dto

import (
	"time"

	"skill-registry/internal/domain/skill"
	"skill-registry/internal/usecase"

	"github.com/google/uuid"
)

type EvaluationResponse struct {
	ID          uuid.UUID `json:"id"`
	EvaluatorID uuid.UUID `json:"evaluatorId"`
	ProfileID   uuid.UUID `json:"profileId"`
	SkillID     uuid.UUID `json:"skillId"`
	Level       int       `json:"level"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type MergedEvaluationResponse struct {
	ID          uuid.UUID `json:"id"`
	ProfileID   uuid.UUID `json:"profileId"`
	SkillID     uuid.UUID `json:"skillId"`
	EvaluatorID uuid.UUID `json:"evaluatorId"`
	Level       int       `json:"level"`
	Version     int64     `json:"version"`
	LogLevel    *int      `json:"logLevel,omitempty"`
	LogVersion  *int64    `json:"logVersion,omitempty"`
	RecordedAt  time.Time `json:"recordedAt"`
	Source      string    `json:"source"`
	Consistent  bool      `json:"consistent"`
}

type EvaluationReportResponse struct {
	Consistent bool                       `json:"consistent"`
	Items      []MergedEvaluationResponse `json:"items"`
}

func NewEvaluationResponse(e skill.Evaluation) EvaluationResponse {
	return EvaluationResponse{
		ID:          e.ID,
		EvaluatorID: e.EvaluatorID,
		ProfileID:   e.ProfileID,
		SkillID:     e.SkillID,
		Level:       e.Level,
		Version:     e.Version,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func NewEvaluationResponses(items []skill.Evaluation) []EvaluationResponse {
	out := make([]EvaluationResponse, 0, len(items))
	for _, e := range items {
		out = append(out, NewEvaluationResponse(e))
	}
	return out
}

func NewEvaluationReportResponse(r usecase.EvaluationReport) EvaluationReportResponse {
	items := make([]MergedEvaluationResponse, 0, len(r.Items))
	for _, m := range r.Items {
		items = append(items, MergedEvaluationResponse{
			ID:          m.ID,
			ProfileID:   m.ProfileID,
			SkillID:     m.SkillID,
			EvaluatorID: m.EvaluatorID,
			Level:       m.Level,
			Version:     m.Version,
			LogLevel:    m.LogLevel,
			LogVersion:  m.LogVersion,
			RecordedAt:  m.RecordedAt,
			Source:      m.Source,
			Consistent:  m.Consistent,
		})
	}
	return EvaluationReportResponse{Consistent: r.Consistent, Items: items}
}
