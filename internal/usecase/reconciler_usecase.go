package usecase

import (
	"context"
	"errors"
	"log"
	"sync"

	"skill-registry/internal/domain/skill"
	"skill-registry/internal/metrics"
	"skill-registry/internal/repository"
	"skill-registry/internal/worker"

	"github.com/google/uuid"
)

type ReconcileOptions struct {
	Workers int
	RPS     float64
}

type ReconcileReport struct {
	CascadesResumed    int `json:"cascadesResumed"`
	CascadesFailed     int `json:"cascadesFailed"`
	OrphanProfiles     int `json:"orphanProfiles"`
	OrphanSkills       int `json:"orphanSkills"`
	SkillsScanned      int `json:"skillsScanned"`
	EntriesProjected   int `json:"entriesProjected"`
	EntriesReprojected int `json:"entriesReprojected"`
	EntriesRemoved     int `json:"entriesRemoved"`
}

// Reconciler brings the ledger and the skill logs back in line after partial
// failures. The ledger is the source of truth.
type Reconciler struct {
	profiles    repository.ProfileRepository
	evaluations repository.EvaluationRepository
	skills      repository.SkillRepository
	cascade     CascadeUsecase
	opts        ReconcileOptions
	metrics     *metrics.Metrics
	logger      *log.Logger

	mu     sync.Mutex
	report ReconcileReport
}

func NewReconciler(profiles repository.ProfileRepository, evaluations repository.EvaluationRepository, skills repository.SkillRepository, cascade CascadeUsecase, opts ReconcileOptions, m *metrics.Metrics, logger *log.Logger) *Reconciler {
	return &Reconciler{
		profiles:    profiles,
		evaluations: evaluations,
		skills:      skills,
		cascade:     cascade,
		opts:        opts,
		metrics:     m,
		logger:      logger,
	}
}

// Run resumes unfinished cascades, removes ledger records of profiles and
// skills that no longer exist and repairs every skill log. It keeps going after individual
// failures and returns them joined.
func (r *Reconciler) Run(ctx context.Context) (ReconcileReport, error) {
	r.mu.Lock()
	r.report = ReconcileReport{}
	r.mu.Unlock()

	var errs []error
	if err := r.resumeCascades(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := r.removeOrphans(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := r.removeSkillOrphans(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := r.repairSkillLogs(ctx); err != nil {
		errs = append(errs, err)
	}

	r.mu.Lock()
	report := r.report
	r.mu.Unlock()

	r.metrics.ReconcileRepair("cascade_resumed", report.CascadesResumed)
	r.metrics.ReconcileRepair("orphan_profile", report.OrphanProfiles)
	r.metrics.ReconcileRepair("orphan_skill", report.OrphanSkills)
	r.metrics.ReconcileRepair("log_projected", report.EntriesProjected)
	r.metrics.ReconcileRepair("log_reprojected", report.EntriesReprojected)
	r.metrics.ReconcileRepair("log_removed", report.EntriesRemoved)

	if r.logger != nil {
		r.logger.Printf("[Reconciler] Done cascades=%d failed=%d orphans=%d skill_orphans=%d skills=%d projected=%d reprojected=%d removed=%d",
			report.CascadesResumed, report.CascadesFailed, report.OrphanProfiles, report.OrphanSkills, report.SkillsScanned,
			report.EntriesProjected, report.EntriesReprojected, report.EntriesRemoved)
	}
	return report, errors.Join(errs...)
}

func (r *Reconciler) resumeCascades(ctx context.Context) error {
	pending, err := r.profiles.ListDeleting(ctx)
	if err != nil {
		return internalError(err)
	}

	tasks := make([]worker.Task, 0, len(pending))
	for _, p := range pending {
		id := p.ID
		tasks = append(tasks, func(ctx context.Context) error {
			_, err := r.cascade.DeleteProfile(ctx, id)
			r.mu.Lock()
			defer r.mu.Unlock()
			if err != nil && !errors.Is(err, ErrProfileNotFound) {
				r.report.CascadesFailed++
				return err
			}
			r.report.CascadesResumed++
			return nil
		})
	}
	return worker.Do(ctx, r.opts.Workers, r.opts.RPS, tasks)
}

// removeOrphans drops the ledger records and log entries of profiles that are
// gone. Tombstoned profiles are left to the cascade.
func (r *Reconciler) removeOrphans(ctx context.Context) error {
	ids, err := r.evaluations.ProfileIDs(ctx)
	if err != nil {
		return internalError(err)
	}

	tasks := make([]worker.Task, 0, len(ids))
	for _, id := range ids {
		profileID := id
		tasks = append(tasks, func(ctx context.Context) error {
			_, err := r.profiles.GetByID(ctx, profileID)
			if err == nil {
				return nil
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return internalError(err)
			}
			if _, err := r.evaluations.DeleteByProfile(ctx, profileID); err != nil {
				return internalError(err)
			}
			if _, err := r.skills.PullProfile(ctx, profileID); err != nil {
				return internalError(err)
			}
			r.mu.Lock()
			r.report.OrphanProfiles++
			r.mu.Unlock()
			return nil
		})
	}
	return worker.Do(ctx, r.opts.Workers, r.opts.RPS, tasks)
}

// removeSkillOrphans drops ledger records whose skill is gone. Profile
// declarations of that skill were already pulled by the skill delete.
func (r *Reconciler) removeSkillOrphans(ctx context.Context) error {
	ids, err := r.evaluations.SkillIDs(ctx)
	if err != nil {
		return internalError(err)
	}

	tasks := make([]worker.Task, 0, len(ids))
	for _, id := range ids {
		skillID := id
		tasks = append(tasks, func(ctx context.Context) error {
			_, err := r.skills.GetByID(ctx, skillID)
			if err == nil {
				return nil
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return internalError(err)
			}
			if _, err := r.evaluations.DeleteBySkill(ctx, skillID); err != nil {
				return internalError(err)
			}
			r.mu.Lock()
			r.report.OrphanSkills++
			r.mu.Unlock()
			return nil
		})
	}
	return worker.Do(ctx, r.opts.Workers, r.opts.RPS, tasks)
}

func (r *Reconciler) repairSkillLogs(ctx context.Context) error {
	skills, err := r.skills.List(ctx)
	if err != nil {
		return internalError(err)
	}

	tasks := make([]worker.Task, 0, len(skills))
	for _, s := range skills {
		skillID := s.ID
		tasks = append(tasks, func(ctx context.Context) error {
			return r.repairSkill(ctx, skillID)
		})
	}
	return worker.Do(ctx, r.opts.Workers, r.opts.RPS, tasks)
}

type logKey struct {
	profileID   uuid.UUID
	evaluatorID uuid.UUID
}

// repairSkill projects ledger facts missing from the log, replaces log
// entries that disagree with the ledger and removes entries with no ledger
// record.
func (r *Reconciler) repairSkill(ctx context.Context, skillID uuid.UUID) error {
	s, err := r.skills.GetByID(ctx, skillID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return internalError(err)
	}
	ledger, err := r.evaluations.ListBySkill(ctx, skillID)
	if err != nil {
		return internalError(err)
	}

	logged := make(map[logKey]skill.LogEntry, len(s.Log))
	for _, e := range s.Log {
		k := logKey{e.ProfileID, e.EvaluatorID}
		if _, ok := logged[k]; !ok {
			logged[k] = e
		}
	}

	var projected, reprojected, removed int
	known := make(map[logKey]struct{}, len(ledger))
	for _, ev := range ledger {
		k := logKey{ev.ProfileID, ev.EvaluatorID}
		known[k] = struct{}{}
		entry, ok := logged[k]
		if ok && entry.Version == ev.Version && entry.Level == ev.Level {
			continue
		}
		if ok {
			if _, err := r.skills.RemoveLogEntry(ctx, skillID, ev.ProfileID, ev.EvaluatorID); err != nil {
				return internalError(err)
			}
		}
		applied, err := r.skills.ProjectEvaluation(ctx, skillID, ev.LogEntry())
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return internalError(err)
		}
		if applied {
			if ok {
				reprojected++
			} else {
				projected++
			}
		}
	}

	for k := range logged {
		if _, ok := known[k]; ok {
			continue
		}
		pulled, err := r.skills.RemoveLogEntry(ctx, skillID, k.profileID, k.evaluatorID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return internalError(err)
		}
		if pulled {
			removed++
		}
	}

	r.mu.Lock()
	r.report.SkillsScanned++
	r.report.EntriesProjected += projected
	r.report.EntriesReprojected += reprojected
	r.report.EntriesRemoved += removed
	r.mu.Unlock()
	return nil
}
