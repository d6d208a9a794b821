package usecase

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"skill-registry/internal/domain/profile"
	"skill-registry/internal/domain/skill"
	"skill-registry/internal/metrics"
	"skill-registry/internal/repository"

	"github.com/google/uuid"
)

type EvaluationInput struct {
	ProfileID   uuid.UUID
	SkillID     uuid.UUID
	EvaluatorID uuid.UUID
	Level       int
}

// Source tells where a merged fact was found.
const (
	SourceBoth   = "both"
	SourceLedger = "ledger"
	SourceLog    = "log"
)

// MergedEvaluation is one (profile, skill, evaluator) fact as seen by the
// ledger and by the skill log. Consistent is false when only one side has it
// or the two sides disagree on level or version.
type MergedEvaluation struct {
	ID          uuid.UUID
	ProfileID   uuid.UUID
	SkillID     uuid.UUID
	EvaluatorID uuid.UUID
	Level       int
	Version     int64
	LogLevel    *int
	LogVersion  *int64
	RecordedAt  time.Time
	Source      string
	Consistent  bool
}

type EvaluationReport struct {
	Items      []MergedEvaluation
	Consistent bool
}

type EvaluationUsecase interface {
	RecordEvaluation(ctx context.Context, in EvaluationInput) (skill.Evaluation, error)
	UpdateEvaluation(ctx context.Context, id uuid.UUID, level int) (skill.Evaluation, error)
	GetEvaluation(ctx context.Context, id uuid.UUID) (skill.Evaluation, error)
	ListEvaluations(ctx context.Context) ([]skill.Evaluation, error)
	EvaluationsByProfile(ctx context.Context, profileID uuid.UUID, strict bool) (EvaluationReport, error)
	EvaluationsBySkill(ctx context.Context, skillID uuid.UUID, strict bool) (EvaluationReport, error)
}

type Evaluations struct {
	repo     repository.EvaluationRepository
	skills   repository.SkillRepository
	profiles repository.ProfileRepository
	metrics  *metrics.Metrics
	events   EventPublisher
	logger   *log.Logger
}

func NewEvaluationUsecase(repo repository.EvaluationRepository, skills repository.SkillRepository, profiles repository.ProfileRepository, m *metrics.Metrics, events EventPublisher, logger *log.Logger) *Evaluations {
	return &Evaluations{
		repo:     repo,
		skills:   skills,
		profiles: profiles,
		metrics:  m,
		events:   publisherOrNoop(events),
		logger:   logger,
	}
}

// RecordEvaluation writes the fact to the ledger and projects it into the
// skill log. The ledger write bumps the record version; the projection only
// lands if the log holds nothing newer for the same (profile, evaluator), so
// racing writers converge on the highest version. If the profile started
// deleting while the write was in flight both copies are removed again and
// ErrProfileDeleting is returned. The same happens with ErrSkillNotFound when
// the skill was deleted in the meantime.
//
// A failure after the ledger write leaves the log behind; repeating the call
// or running the reconciler repairs it.
func (u *Evaluations) RecordEvaluation(ctx context.Context, in EvaluationInput) (skill.Evaluation, error) {
	verr := &ValidationError{}
	if in.ProfileID == uuid.Nil {
		verr.Add("profileId", "is required")
	}
	if in.SkillID == uuid.Nil {
		verr.Add("skillId", "is required")
	}
	if in.EvaluatorID == uuid.Nil {
		verr.Add("evaluatorId", "is required")
	}
	if !skill.ValidLevel(in.Level) {
		verr.Add("level", "must be between 1 and 5")
	}
	if err := verr.Err(); err != nil {
		return skill.Evaluation{}, err
	}

	if _, err := u.liveProfile(ctx, in.ProfileID); err != nil {
		return skill.Evaluation{}, err
	}
	if _, err := u.skills.GetByID(ctx, in.SkillID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return skill.Evaluation{}, ErrSkillNotFound
		}
		return skill.Evaluation{}, internalError(err)
	}

	now := time.Now().UTC()
	ev, err := u.repo.Upsert(ctx, skill.Evaluation{
		ID:          uuid.New(),
		EvaluatorID: in.EvaluatorID,
		ProfileID:   in.ProfileID,
		SkillID:     in.SkillID,
		Level:       in.Level,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return skill.Evaluation{}, internalError(err)
	}

	applied, err := u.skills.ProjectEvaluation(ctx, in.SkillID, ev.LogEntry())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			u.compensate(ctx, ev)
			return skill.Evaluation{}, ErrSkillNotFound
		}
		if u.logger != nil {
			u.logger.Printf("[Evaluations] Projection failed profile=%s skill=%s evaluator=%s version=%d err=%v", ev.ProfileID, ev.SkillID, ev.EvaluatorID, ev.Version, err)
		}
		return skill.Evaluation{}, internalError(err)
	}
	if !applied {
		u.metrics.ProjectionSkipped()
	}

	if _, err := u.liveProfile(ctx, in.ProfileID); err != nil {
		if errors.Is(err, ErrProfileDeleting) || errors.Is(err, ErrProfileNotFound) {
			u.compensate(ctx, ev)
			u.metrics.EvaluationConflict()
			return skill.Evaluation{}, ErrProfileDeleting
		}
		return skill.Evaluation{}, err
	}
	if _, err := u.skills.GetByID(ctx, in.SkillID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			u.compensate(ctx, ev)
			u.metrics.EvaluationConflict()
			return skill.Evaluation{}, ErrSkillNotFound
		}
		return skill.Evaluation{}, internalError(err)
	}

	u.metrics.EvaluationRecorded()
	u.events.Publish(EventEvaluationRecorded, ev)
	return ev, nil
}

// UpdateEvaluation changes the level of an existing record. The record keeps
// its (profile, skill, evaluator) key.
func (u *Evaluations) UpdateEvaluation(ctx context.Context, id uuid.UUID, level int) (skill.Evaluation, error) {
	current, err := u.GetEvaluation(ctx, id)
	if err != nil {
		return skill.Evaluation{}, err
	}
	return u.RecordEvaluation(ctx, EvaluationInput{
		ProfileID:   current.ProfileID,
		SkillID:     current.SkillID,
		EvaluatorID: current.EvaluatorID,
		Level:       level,
	})
}

func (u *Evaluations) GetEvaluation(ctx context.Context, id uuid.UUID) (skill.Evaluation, error) {
	ev, err := u.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return skill.Evaluation{}, ErrEvaluationNotFound
		}
		return skill.Evaluation{}, internalError(err)
	}
	return ev, nil
}

func (u *Evaluations) ListEvaluations(ctx context.Context) ([]skill.Evaluation, error) {
	items, err := u.repo.List(ctx)
	if err != nil {
		return nil, internalError(err)
	}
	return items, nil
}

func (u *Evaluations) EvaluationsByProfile(ctx context.Context, profileID uuid.UUID, strict bool) (EvaluationReport, error) {
	if _, err := u.liveProfile(ctx, profileID); err != nil {
		if errors.Is(err, ErrProfileDeleting) {
			return EvaluationReport{}, ErrProfileNotFound
		}
		return EvaluationReport{}, err
	}

	ledger, err := u.repo.ListByProfile(ctx, profileID)
	if err != nil {
		return EvaluationReport{}, internalError(err)
	}
	skills, err := u.skills.ListWithProfileLog(ctx, profileID)
	if err != nil {
		return EvaluationReport{}, internalError(err)
	}

	logged := make([]loggedFact, 0)
	for _, s := range skills {
		for _, e := range s.Log {
			if e.ProfileID == profileID {
				logged = append(logged, loggedFact{skillID: s.ID, entry: e})
			}
		}
	}
	return u.report("profile", mergeEvaluations(ledger, logged), strict)
}

func (u *Evaluations) EvaluationsBySkill(ctx context.Context, skillID uuid.UUID, strict bool) (EvaluationReport, error) {
	s, err := u.skills.GetByID(ctx, skillID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return EvaluationReport{}, ErrSkillNotFound
		}
		return EvaluationReport{}, internalError(err)
	}

	ledger, err := u.repo.ListBySkill(ctx, skillID)
	if err != nil {
		return EvaluationReport{}, internalError(err)
	}

	logged := make([]loggedFact, 0, len(s.Log))
	for _, e := range s.Log {
		logged = append(logged, loggedFact{skillID: s.ID, entry: e})
	}
	return u.report("skill", mergeEvaluations(ledger, logged), strict)
}

func (u *Evaluations) report(scope string, items []MergedEvaluation, strict bool) (EvaluationReport, error) {
	out := EvaluationReport{Items: items, Consistent: true}
	for _, it := range items {
		if !it.Consistent {
			out.Consistent = false
			break
		}
	}
	if !out.Consistent {
		u.metrics.DivergentRead(scope)
		if strict {
			return out, ErrDivergentRead
		}
	}
	return out, nil
}

func (u *Evaluations) liveProfile(ctx context.Context, id uuid.UUID) (profile.Profile, error) {
	p, err := u.profiles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return profile.Profile{}, ErrProfileNotFound
		}
		return profile.Profile{}, internalError(err)
	}
	if p.Deleting() {
		return profile.Profile{}, ErrProfileDeleting
	}
	return p, nil
}

// compensate removes both copies of ev. Errors are logged only; the
// reconciler picks up whatever is left.
func (u *Evaluations) compensate(ctx context.Context, ev skill.Evaluation) {
	if _, err := u.repo.DeleteByKey(ctx, ev.ProfileID, ev.SkillID, ev.EvaluatorID); err != nil && u.logger != nil {
		u.logger.Printf("[Evaluations] Compensation ledger delete failed profile=%s skill=%s evaluator=%s err=%v", ev.ProfileID, ev.SkillID, ev.EvaluatorID, err)
	}
	if _, err := u.skills.RemoveLogEntry(ctx, ev.SkillID, ev.ProfileID, ev.EvaluatorID); err != nil && !errors.Is(err, repository.ErrNotFound) && u.logger != nil {
		u.logger.Printf("[Evaluations] Compensation log pull failed profile=%s skill=%s evaluator=%s err=%v", ev.ProfileID, ev.SkillID, ev.EvaluatorID, err)
	}
}

type loggedFact struct {
	skillID uuid.UUID
	entry   skill.LogEntry
}

type factKey struct {
	profileID   uuid.UUID
	skillID     uuid.UUID
	evaluatorID uuid.UUID
}

// mergeEvaluations joins ledger records and log entries on
// (profile, skill, evaluator). The result is ordered most recent first.
func mergeEvaluations(ledger []skill.Evaluation, logged []loggedFact) []MergedEvaluation {
	byKey := make(map[factKey]*MergedEvaluation, len(ledger)+len(logged))
	out := make([]*MergedEvaluation, 0, len(ledger)+len(logged))

	for _, ev := range ledger {
		k := factKey{ev.ProfileID, ev.SkillID, ev.EvaluatorID}
		m := &MergedEvaluation{
			ID:          ev.ID,
			ProfileID:   ev.ProfileID,
			SkillID:     ev.SkillID,
			EvaluatorID: ev.EvaluatorID,
			Level:       ev.Level,
			Version:     ev.Version,
			RecordedAt:  ev.UpdatedAt,
			Source:      SourceLedger,
		}
		byKey[k] = m
		out = append(out, m)
	}

	for _, lf := range logged {
		e := lf.entry
		k := factKey{e.ProfileID, lf.skillID, e.EvaluatorID}
		level, version := e.Level, e.Version
		if m, ok := byKey[k]; ok {
			if m.Source != SourceLedger {
				continue
			}
			m.LogLevel = &level
			m.LogVersion = &version
			m.Source = SourceBoth
			m.Consistent = m.Level == level && m.Version == version
			continue
		}
		m := &MergedEvaluation{
			ProfileID:   e.ProfileID,
			SkillID:     lf.skillID,
			EvaluatorID: e.EvaluatorID,
			Level:       level,
			Version:     version,
			LogLevel:    &level,
			LogVersion:  &version,
			RecordedAt:  e.RecordedAt,
			Source:      SourceLog,
		}
		byKey[k] = m
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})

	items := make([]MergedEvaluation, 0, len(out))
	for _, m := range out {
		items = append(items, *m)
	}
	return items
}
