package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"skill-registry/internal/domain/skill"

	"github.com/google/uuid"
)

func TestEvaluations_RecordWritesLedgerAndLog(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.addProfile("ana")
	s := f.addSkill("Go")
	lead := f.addUser("lead@example.com")

	ev, err := f.evaluations.RecordEvaluation(ctx, EvaluationInput{ProfileID: p.ID, SkillID: s.ID, EvaluatorID: lead.ID, Level: 3})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if ev.Version != 1 {
		t.Fatalf("expected version 1, got %d", ev.Version)
	}

	got, _ := f.skills.GetSkill(ctx, s.ID)
	if len(got.Log) != 1 || got.Log[0].Level != 3 || got.Log[0].Version != 1 || got.Log[0].ProfileID != p.ID {
		t.Fatalf("unexpected log %+v", got.Log)
	}
	if types := f.events.types(); len(types) != 1 || types[0] != EventEvaluationRecorded {
		t.Fatalf("expected one evaluation event, got %v", types)
	}
}

func TestEvaluations_RerecordBumpsVersionAndKeepsOneEntry(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.addProfile("ana")
	s := f.addSkill("Go")
	lead := f.addUser("lead@example.com")
	peer := f.addUser("peer@example.com")

	_, _ = f.evaluations.RecordEvaluation(ctx, EvaluationInput{ProfileID: p.ID, SkillID: s.ID, EvaluatorID: lead.ID, Level: 2})
	_, _ = f.evaluations.RecordEvaluation(ctx, EvaluationInput{ProfileID: p.ID, SkillID: s.ID, EvaluatorID: peer.ID, Level: 4})
	ev, err := f.evaluations.RecordEvaluation(ctx, EvaluationInput{ProfileID: p.ID, SkillID: s.ID, EvaluatorID: lead.ID, Level: 5})
	if err != nil {
		t.Fatalf("rerecord: %v", err)
	}
	if ev.Version != 2 || ev.Level != 5 {
		t.Fatalf("expected version 2 level 5, got %+v", ev)
	}

	got, _ := f.skills.GetSkill(ctx, s.ID)
	if len(got.Log) != 2 {
		t.Fatalf("expected one entry per evaluator, got %d", len(got.Log))
	}
	if got.Log[0].EvaluatorID != lead.ID || got.Log[0].Level != 5 {
		t.Fatalf("newest entry must come first, got %+v", got.Log[0])
	}

	evs, _ := f.evaluations.ListEvaluations(ctx)
	if len(evs) != 2 {
		t.Fatalf("expected 2 ledger records, got %d", len(evs))
	}
}

func TestEvaluations_StaleProjectionIgnored(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.addProfile("ana")
	s := f.addSkill("Go")
	lead := f.addUser("lead@example.com")

	_, _ = f.evaluations.RecordEvaluation(ctx, EvaluationInput{ProfileID: p.ID, SkillID: s.ID, EvaluatorID: lead.ID, Level: 2})
	_, _ = f.evaluations.RecordEvaluation(ctx, EvaluationInput{ProfileID: p.ID, SkillID: s.ID, EvaluatorID: lead.ID, Level: 4})

	applied, err := f.skillsDB.ProjectEvaluation(ctx, s.ID, skill.LogEntry{ProfileID: p.ID, EvaluatorID: lead.ID, Level: 2, Version: 1, RecordedAt: time.Now()})
	if err != nil || applied {
		t.Fatalf("stale projection must be skipped: applied=%v err=%v", applied, err)
	}
	got, _ := f.skills.GetSkill(ctx, s.ID)
	if got.Log[0].Level != 4 || got.Log[0].Version != 2 {
		t.Fatalf("log must keep the newest version, got %+v", got.Log[0])
	}
}

func TestEvaluations_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.addProfile("ana")
	s := f.addSkill("Go")
	lead := f.addUser("lead@example.com")

	for _, level := range []int{0, 6, -1} {
		_, err := f.evaluations.RecordEvaluation(ctx, EvaluationInput{ProfileID: p.ID, SkillID: s.ID, EvaluatorID: lead.ID, Level: level})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("level %d: expected ErrInvalidInput, got %v", level, err)
		}
	}

	if _, err := f.evaluations.RecordEvaluation(ctx, EvaluationInput{ProfileID: uuid.New(), SkillID: s.ID, EvaluatorID: lead.ID, Level: 3}); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
	if _, err := f.evaluations.RecordEvaluation(ctx, EvaluationInput{ProfileID: p.ID, SkillID: uuid.New(), EvaluatorID: lead.ID, Level: 3}); !errors.Is(err, ErrSkillNotFound) {
		t.Fatalf("expected ErrSkillNotFound, got %v", err)
	}
	if evs, _ := f.evaluations.ListEvaluations(ctx); len(evs) != 0 {
		t.Fatalf("rejected writes must leave the ledger empty")
	}
}

func TestEvaluations_RejectedOnDeletingProfile(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.addProfile("ana")
	s := f.addSkill("Go")
	lead := f.addUser("lead@example.com")

	if _, err := f.profsDB.MarkDeleting(ctx, p.ID, time.Now()); err != nil {
		t.Fatalf("mark: %v", err)
	}
	_, err := f.evaluations.RecordEvaluation(ctx, EvaluationInput{ProfileID: p.ID, SkillID: s.ID, EvaluatorID: lead.ID, Level: 3})
	if !errors.Is(err, ErrProfileDeleting) || !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrProfileDeleting, got %v", err)
	}
}

func TestEvaluations_CompensatesWhenCascadeStartsMidWrite(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.addProfile("ana")
	s := f.addSkill("Go")
	lead := f.addUser("lead@example.com")

	f.store.after("skills.ProjectEvaluation", func() {
		if _, err := f.profsDB.MarkDeleting(ctx, p.ID, time.Now()); err != nil {
			t.Errorf("mark: %v", err)
		}
	})

	_, err := f.evaluations.RecordEvaluation(ctx, EvaluationInput{ProfileID: p.ID, SkillID: s.ID, EvaluatorID: lead.ID, Level: 3})
	if !errors.Is(err, ErrProfileDeleting) {
		t.Fatalf("expected ErrProfileDeleting, got %v", err)
	}
	if evs, _ := f.evaluations.ListEvaluations(ctx); len(evs) != 0 {
		t.Fatalf("ledger record must be compensated, got %d", len(evs))
	}
	got, _ := f.skills.GetSkill(ctx, s.ID)
	if len(got.Log) != 0 {
		t.Fatalf("log entry must be compensated, got %+v", got.Log)
	}
	if len(f.events.types()) != 0 {
		t.Fatalf("no event for a rolled back evaluation")
	}
}

func TestEvaluations_ProjectionFailureIsRetryable(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.addProfile("ana")
	s := f.addSkill("Go")
	lead := f.addUser("lead@example.com")

	f.store.failNext("skills.ProjectEvaluation", 1)
	_, err := f.evaluations.RecordEvaluation(ctx, EvaluationInput{ProfileID: p.ID, SkillID: s.ID, EvaluatorID: lead.ID, Level: 3})
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}

	report, err := f.evaluations.EvaluationsBySkill(ctx, s.ID, false)
	if err != nil || report.Consistent {
		t.Fatalf("ledger-only fact must be reported divergent: %+v err=%v", report, err)
	}

	ev, err := f.evaluations.RecordEvaluation(ctx, EvaluationInput{ProfileID: p.ID, SkillID: s.ID, EvaluatorID: lead.ID, Level: 3})
	if err != nil || ev.Version != 2 {
		t.Fatalf("retry must supersede with version 2: %+v err=%v", ev, err)
	}
	report, _ = f.evaluations.EvaluationsBySkill(ctx, s.ID, true)
	if !report.Consistent || len(report.Items) != 1 || report.Items[0].Source != SourceBoth {
		t.Fatalf("expected consistent report after retry, got %+v", report)
	}
}

func TestEvaluations_UpdateKeepsKey(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.addProfile("ana")
	s := f.addSkill("Go")
	lead := f.addUser("lead@example.com")

	ev, _ := f.evaluations.RecordEvaluation(ctx, EvaluationInput{ProfileID: p.ID, SkillID: s.ID, EvaluatorID: lead.ID, Level: 1})
	updated, err := f.evaluations.UpdateEvaluation(ctx, ev.ID, 4)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != ev.ID || updated.Level != 4 || updated.EvaluatorID != lead.ID || updated.Version != 2 {
		t.Fatalf("unexpected update %+v", updated)
	}
	if _, err := f.evaluations.UpdateEvaluation(ctx, uuid.New(), 4); !errors.Is(err, ErrEvaluationNotFound) {
		t.Fatalf("expected ErrEvaluationNotFound, got %v", err)
	}
}

func TestEvaluations_MergedReadFlagsDivergence(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.addProfile("ana")
	goSkill := f.addSkill("Go")
	sqlSkill := f.addSkill("SQL")
	lead := f.addUser("lead@example.com")

	_, _ = f.evaluations.RecordEvaluation(ctx, EvaluationInput{ProfileID: p.ID, SkillID: goSkill.ID, EvaluatorID: lead.ID, Level: 3})
	_, _ = f.evaluations.RecordEvaluation(ctx, EvaluationInput{ProfileID: p.ID, SkillID: sqlSkill.ID, EvaluatorID: lead.ID, Level: 2})

	report, err := f.evaluations.EvaluationsByProfile(ctx, p.ID, true)
	if err != nil || !report.Consistent || len(report.Items) != 2 {
		t.Fatalf("expected consistent report of 2, got %+v err=%v", report, err)
	}

	ghost := uuid.New()
	_, _ = f.skillsDB.ProjectEvaluation(ctx, sqlSkill.ID, skill.LogEntry{ProfileID: p.ID, EvaluatorID: ghost, Level: 5, Version: 1, RecordedAt: time.Now()})

	report, err = f.evaluations.EvaluationsByProfile(ctx, p.ID, false)
	if err != nil || report.Consistent || len(report.Items) != 3 {
		t.Fatalf("expected divergent report of 3, got %+v err=%v", report, err)
	}
	var logOnly *MergedEvaluation
	for i := range report.Items {
		if report.Items[i].EvaluatorID == ghost {
			logOnly = &report.Items[i]
		}
	}
	if logOnly == nil || logOnly.Source != SourceLog || logOnly.Consistent || logOnly.ID != uuid.Nil {
		t.Fatalf("unexpected log-only item %+v", logOnly)
	}

	if _, err := f.evaluations.EvaluationsByProfile(ctx, p.ID, true); !errors.Is(err, ErrDivergentRead) {
		t.Fatalf("strict read must fail, got %v", err)
	}
	if _, err := f.evaluations.EvaluationsBySkill(ctx, goSkill.ID, true); err != nil {
		t.Fatalf("Go skill is still consistent: %v", err)
	}
}

func TestMergeEvaluations_LevelMismatch(t *testing.T) {
	p, s, e := uuid.New(), uuid.New(), uuid.New()
	ledger := []skill.Evaluation{{ID: uuid.New(), ProfileID: p, SkillID: s, EvaluatorID: e, Level: 4, Version: 3}}
	logged := []loggedFact{{skillID: s, entry: skill.LogEntry{ProfileID: p, EvaluatorID: e, Level: 2, Version: 2}}}

	items := mergeEvaluations(ledger, logged)
	if len(items) != 1 {
		t.Fatalf("expected 1 merged item, got %d", len(items))
	}
	it := items[0]
	if it.Consistent || it.Source != SourceBoth || *it.LogLevel != 2 || *it.LogVersion != 2 || it.Level != 4 {
		t.Fatalf("unexpected merged item %+v", it)
	}
}

func TestEvaluations_CompensatesWhenSkillDeletedMidWrite(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.addProfile("ana")
	s := f.addSkill("Go")
	lead := f.addUser("lead@example.com")

	f.store.after("skills.ProjectEvaluation", func() {
		if _, err := f.skillsDB.Delete(ctx, s.ID); err != nil {
			t.Errorf("delete skill: %v", err)
		}
	})

	_, err := f.evaluations.RecordEvaluation(ctx, EvaluationInput{ProfileID: p.ID, SkillID: s.ID, EvaluatorID: lead.ID, Level: 3})
	if !errors.Is(err, ErrSkillNotFound) {
		t.Fatalf("expected ErrSkillNotFound, got %v", err)
	}
	if evs, _ := f.evaluations.ListEvaluations(ctx); len(evs) != 0 {
		t.Fatalf("ledger record must be compensated, got %d", len(evs))
	}
	if _, err := f.evaluations.EvaluationsByProfile(ctx, p.ID, true); err != nil {
		t.Fatalf("strict read must stay consistent: %v", err)
	}
	if len(f.events.types()) != 0 {
		t.Fatalf("no event for a rolled back evaluation")
	}
}
