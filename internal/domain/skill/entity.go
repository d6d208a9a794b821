package skill

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinLevel = 1
	MaxLevel = 5
)

type LinkReference struct {
	Name string
	URL  string
}

// LogEntry is the copy of an evaluation embedded in the skill document.
// Entries are kept newest first, one per (profile, evaluator).
type LogEntry struct {
	ProfileID   uuid.UUID
	EvaluatorID uuid.UUID
	Level       int
	Version     int64
	RecordedAt  time.Time
}

type Skill struct {
	ID             uuid.UUID
	Name           string
	Description    string
	LinkReferences []LinkReference
	Log            []LogEntry
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Evaluation is a ledger record: one per (profile, skill, evaluator).
// Version grows on every write and orders the log projection.
type Evaluation struct {
	ID          uuid.UUID
	EvaluatorID uuid.UUID
	ProfileID   uuid.UUID
	SkillID     uuid.UUID
	Level       int
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (e Evaluation) LogEntry() LogEntry {
	return LogEntry{
		ProfileID:   e.ProfileID,
		EvaluatorID: e.EvaluatorID,
		Level:       e.Level,
		Version:     e.Version,
		RecordedAt:  e.UpdatedAt,
	}
}

func ValidLevel(level int) bool {
	return level >= MinLevel && level <= MaxLevel
}
