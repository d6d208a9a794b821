package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"skill-registry/internal/metrics"
	"skill-registry/internal/repository"

	"github.com/google/uuid"
)

const (
	StepTombstone = "tombstone"
	StepLedger    = "ledger"
	StepLog       = "log"
	StepProfile   = "profile"
)

type CascadeReport struct {
	ProfileID          uuid.UUID `json:"profileId"`
	EvaluationsRemoved int64     `json:"evaluationsRemoved"`
	SkillsTouched      int64     `json:"skillsTouched"`
	ProfileRemoved     bool      `json:"profileRemoved"`
}

type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// CascadeStepError names the step that kept failing after all retries. The
// profile stays tombstoned and the next delete resumes the cascade.
type CascadeStepError struct {
	Step     string
	Attempts int
	Err      error
}

func (e *CascadeStepError) Error() string {
	return fmt.Sprintf("cascade step %q failed after %d attempt(s): %v", e.Step, e.Attempts, e.Err)
}

func (e *CascadeStepError) Unwrap() []error {
	return []error{ErrInternal, e.Err}
}

type CascadeUsecase interface {
	DeleteProfile(ctx context.Context, profileID uuid.UUID) (CascadeReport, error)
}

type Cascade struct {
	profiles    repository.ProfileRepository
	evaluations repository.EvaluationRepository
	skills      repository.SkillRepository
	policy      RetryPolicy
	metrics     *metrics.Metrics
	events      EventPublisher
	logger      *log.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

func NewCascadeUsecase(profiles repository.ProfileRepository, evaluations repository.EvaluationRepository, skills repository.SkillRepository, policy RetryPolicy, m *metrics.Metrics, events EventPublisher, logger *log.Logger) *Cascade {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	return &Cascade{
		profiles:    profiles,
		evaluations: evaluations,
		skills:      skills,
		policy:      policy,
		metrics:     m,
		events:      publisherOrNoop(events),
		logger:      logger,
		sleep:       sleepContext,
	}
}

// DeleteProfile tombstones the profile, then removes its ledger records, its
// skill log entries and finally the profile itself. Every step is idempotent,
// so calling it again after a failure resumes where the last call stopped.
// When the profile no longer exists the cleanup steps still run and
// ErrProfileNotFound is returned with the report.
func (u *Cascade) DeleteProfile(ctx context.Context, profileID uuid.UUID) (CascadeReport, error) {
	report := CascadeReport{ProfileID: profileID}

	missing := false
	err := u.step(ctx, StepTombstone, func(ctx context.Context) error {
		_, err := u.profiles.MarkDeleting(ctx, profileID, time.Now().UTC())
		return err
	})
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return report, err
		}
		missing = true
	}

	if err := u.step(ctx, StepLedger, func(ctx context.Context) error {
		n, err := u.evaluations.DeleteByProfile(ctx, profileID)
		report.EvaluationsRemoved += n
		return err
	}); err != nil {
		return report, err
	}

	if err := u.step(ctx, StepLog, func(ctx context.Context) error {
		n, err := u.skills.PullProfile(ctx, profileID)
		report.SkillsTouched += n
		return err
	}); err != nil {
		return report, err
	}

	if missing {
		if u.logger != nil && (report.EvaluationsRemoved > 0 || report.SkillsTouched > 0) {
			u.logger.Printf("[Cascade] Cleaned leftovers of missing profile=%s evaluations=%d skills=%d", profileID, report.EvaluationsRemoved, report.SkillsTouched)
		}
		return report, ErrProfileNotFound
	}

	if err := u.step(ctx, StepProfile, func(ctx context.Context) error {
		deleted, err := u.profiles.Delete(ctx, profileID)
		report.ProfileRemoved = report.ProfileRemoved || deleted
		return err
	}); err != nil {
		return report, err
	}

	if u.logger != nil {
		u.logger.Printf("[Cascade] Deleted profile=%s evaluations=%d skills=%d", profileID, report.EvaluationsRemoved, report.SkillsTouched)
	}
	u.events.Publish(EventProfileDeleted, report)
	return report, nil
}

// step runs fn until it succeeds, the attempts are used up or ctx ends. The
// wait doubles after every failure. repository.ErrNotFound is returned as is
// without retrying.
func (u *Cascade) step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	backoff := u.policy.Backoff
	var err error
	attempt := 0
	for attempt < u.policy.MaxAttempts {
		attempt++
		err = fn(ctx)
		u.metrics.CascadeStep(name, err)
		if err == nil {
			return nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if u.logger != nil {
			u.logger.Printf("[Cascade] Step failed step=%s attempt=%d/%d err=%v", name, attempt, u.policy.MaxAttempts, err)
		}
		if attempt == u.policy.MaxAttempts {
			break
		}
		u.metrics.CascadeRetry(name)
		if serr := u.sleep(ctx, backoff); serr != nil {
			err = serr
			break
		}
		backoff *= 2
	}
	return &CascadeStepError{Step: name, Attempts: attempt, Err: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
