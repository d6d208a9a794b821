package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"skill-registry/internal/domain/skill"
)

func TestCascade_DeleteProfileRemovesEverything(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.addProfile("ana")
	other := f.addProfile("bruno")
	goSkill := f.addSkill("Go")
	sqlSkill := f.addSkill("SQL")
	lead := f.addUser("lead@example.com")
	peer := f.addUser("peer@example.com")

	for _, in := range []EvaluationInput{
		{ProfileID: p.ID, SkillID: goSkill.ID, EvaluatorID: lead.ID, Level: 4},
		{ProfileID: p.ID, SkillID: goSkill.ID, EvaluatorID: peer.ID, Level: 3},
		{ProfileID: p.ID, SkillID: sqlSkill.ID, EvaluatorID: lead.ID, Level: 2},
		{ProfileID: other.ID, SkillID: goSkill.ID, EvaluatorID: lead.ID, Level: 5},
	} {
		if _, err := f.evaluations.RecordEvaluation(ctx, in); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	report, err := f.cascade.DeleteProfile(ctx, p.ID)
	if err != nil {
		t.Fatalf("cascade: %v", err)
	}
	if report.EvaluationsRemoved != 3 || report.SkillsTouched != 2 || !report.ProfileRemoved {
		t.Fatalf("unexpected report %+v", report)
	}

	if evs, _ := f.evalsDB.ListByProfile(ctx, p.ID); len(evs) != 0 {
		t.Fatalf("ledger still holds %d records of the profile", len(evs))
	}
	for _, s := range []skill.Skill{goSkill, sqlSkill} {
		got, _ := f.skills.GetSkill(ctx, s.ID)
		for _, e := range got.Log {
			if e.ProfileID == p.ID {
				t.Fatalf("skill %s still logs the deleted profile", s.Name)
			}
		}
	}
	got, _ := f.skills.GetSkill(ctx, goSkill.ID)
	if len(got.Log) != 1 || got.Log[0].ProfileID != other.ID {
		t.Fatalf("other profiles must be untouched, got %+v", got.Log)
	}
	if _, err := f.profsDB.GetByID(ctx, p.ID); err == nil {
		t.Fatalf("profile document must be gone")
	}

	types := f.events.types()
	if types[len(types)-1] != EventProfileDeleted {
		t.Fatalf("expected profile_deleted event, got %v", types)
	}
}

func TestCascade_RetriesTransientFailures(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.addProfile("ana")

	f.store.failNext("skills.PullProfile", 2)
	report, err := f.cascade.DeleteProfile(ctx, p.ID)
	if err != nil {
		t.Fatalf("two failures fit in three attempts: %v", err)
	}
	if !report.ProfileRemoved {
		t.Fatalf("profile must be removed")
	}
	if n := f.store.callCount("skills.PullProfile"); n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}
}

func TestCascade_FailedStepIsResumable(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.addProfile("ana")
	s := f.addSkill("Go")
	lead := f.addUser("lead@example.com")
	_, _ = f.evaluations.RecordEvaluation(ctx, EvaluationInput{ProfileID: p.ID, SkillID: s.ID, EvaluatorID: lead.ID, Level: 3})

	f.store.failNext("evaluations.DeleteByProfile", 3)
	_, err := f.cascade.DeleteProfile(ctx, p.ID)
	var stepErr *CascadeStepError
	if !errors.As(err, &stepErr) || stepErr.Step != StepLedger || stepErr.Attempts != 3 {
		t.Fatalf("expected ledger step error after 3 attempts, got %v", err)
	}
	if !errors.Is(err, ErrInternal) || !errors.Is(err, errStoreDown) {
		t.Fatalf("step error must wrap ErrInternal and the cause")
	}

	stored, _ := f.profsDB.GetByID(ctx, p.ID)
	if !stored.Deleting() {
		t.Fatalf("tombstone must stay after a failed step")
	}
	if _, err := f.profiles.GetProfile(ctx, p.ID); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("tombstoned profile must be hidden")
	}
	if _, err := f.evaluations.RecordEvaluation(ctx, EvaluationInput{ProfileID: p.ID, SkillID: s.ID, EvaluatorID: lead.ID, Level: 5}); !errors.Is(err, ErrProfileDeleting) {
		t.Fatalf("new evaluations must be rejected, got %v", err)
	}

	report, err := f.cascade.DeleteProfile(ctx, p.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if report.EvaluationsRemoved != 1 || !report.ProfileRemoved {
		t.Fatalf("unexpected resume report %+v", report)
	}
}

func TestCascade_MissingProfileStillCleansUp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.addProfile("ana")
	s := f.addSkill("Go")
	lead := f.addUser("lead@example.com")
	_, _ = f.evaluations.RecordEvaluation(ctx, EvaluationInput{ProfileID: p.ID, SkillID: s.ID, EvaluatorID: lead.ID, Level: 3})

	_, _ = f.profsDB.Delete(ctx, p.ID)

	report, err := f.cascade.DeleteProfile(ctx, p.ID)
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
	if report.EvaluationsRemoved != 1 || report.SkillsTouched != 1 || report.ProfileRemoved {
		t.Fatalf("leftovers must be cleaned, got %+v", report)
	}
	if n := f.store.callCount("profiles.MarkDeleting"); n != 1 {
		t.Fatalf("NotFound must not be retried, got %d calls", n)
	}
}

func TestCascade_StopsOnContextCancel(t *testing.T) {
	f := newFixture()
	f.cascade.sleep = sleepContext
	f.cascade.policy = RetryPolicy{MaxAttempts: 5, Backoff: time.Hour}
	p := f.addProfile("ana")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	f.store.failNext("evaluations.DeleteByProfile", 5)

	_, err := f.cascade.DeleteProfile(ctx, p.ID)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
