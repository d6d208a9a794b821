package repository

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"skill-registry/internal/config"
	"skill-registry/internal/database"
	"skill-registry/internal/database/migration"
	dbpostgres "skill-registry/internal/database/postgres"
	"skill-registry/internal/domain/profile"
	"skill-registry/internal/domain/skill"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// connectTestDB connects to POSTGRES_TEST_DSN and applies the migrations.
// Rows created by a test are removed in its cleanup.
func connectTestDB(t *testing.T) database.DB {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	pc, err := pgx.ParseConfig(dsn)
	require.NoError(t, err)
	ssl := os.Getenv("POSTGRES_TEST_SSL_MODE")
	if ssl == "" {
		ssl = "disable"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := dbpostgres.Connect(ctx, config.DatabaseConfig{
		DBHost:     pc.Host,
		DBPort:     strconv.Itoa(int(pc.Port)),
		DBName:     pc.Database,
		DBUser:     pc.User,
		DBPassword: pc.Password,
		DBSSLMode:  ssl,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = migration.NewDirRunner(migrationsDir(t), nil).Run(ctx, db)
	require.NoError(t, err)
	return db
}

func migrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	// internal/repository -> module root
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

func cleanupRows(t *testing.T, db database.DB, table string, ids ...uuid.UUID) {
	t.Helper()
	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), `DELETE FROM `+table+` WHERE id = ANY($1)`, ids)
	})
}

func newTestSkill(t *testing.T, db database.DB, repo *PostgresSkillRepository, name string) skill.Skill {
	t.Helper()
	s, created, err := repo.UpsertByName(context.Background(), skill.Skill{Name: name + "-" + uuid.NewString()[:8]})
	require.NoError(t, err)
	require.True(t, created)
	cleanupRows(t, db, "skills", s.ID)
	return s
}

func TestFilterArrayExprKeepsOrder(t *testing.T) {
	expr := filterArrayExpr("log", `e->>'profile_id' = $1::text`)
	assert.Contains(t, expr, "jsonb_agg(e ORDER BY ord)")
	assert.Contains(t, expr, "WITH ORDINALITY")
	assert.Contains(t, expr, "'[]'::jsonb")
}

func TestPostgresSkillRepository_ProjectEvaluationVersionGuard(t *testing.T) {
	db := connectTestDB(t)
	ctx := context.Background()
	repo := NewPostgresSkillRepository(db)
	sk := newTestSkill(t, db, repo, "PostgreSQL")

	profileID, lead, peer := uuid.New(), uuid.New(), uuid.New()
	now := time.Now().UTC()

	applied, err := repo.ProjectEvaluation(ctx, sk.ID, skill.LogEntry{ProfileID: profileID, EvaluatorID: lead, Level: 2, Version: 2, RecordedAt: now})
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.ProjectEvaluation(ctx, sk.ID, skill.LogEntry{ProfileID: profileID, EvaluatorID: peer, Level: 3, Version: 1, RecordedAt: now})
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.ProjectEvaluation(ctx, sk.ID, skill.LogEntry{ProfileID: profileID, EvaluatorID: lead, Level: 5, Version: 2, RecordedAt: now})
	require.NoError(t, err)
	assert.False(t, applied, "equal version must not replace the entry")

	applied, err = repo.ProjectEvaluation(ctx, sk.ID, skill.LogEntry{ProfileID: profileID, EvaluatorID: lead, Level: 4, Version: 3, RecordedAt: now})
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := repo.GetByID(ctx, sk.ID)
	require.NoError(t, err)
	require.Len(t, got.Log, 2)
	assert.Equal(t, lead, got.Log[0].EvaluatorID)
	assert.Equal(t, 4, got.Log[0].Level)
	assert.Equal(t, int64(3), got.Log[0].Version)
	assert.Equal(t, peer, got.Log[1].EvaluatorID)

	_, err = repo.ProjectEvaluation(ctx, uuid.New(), skill.LogEntry{ProfileID: profileID, EvaluatorID: lead, Level: 1, Version: 1, RecordedAt: now})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresSkillRepository_PullProfileAndRemoveLogEntry(t *testing.T) {
	db := connectTestDB(t)
	ctx := context.Background()
	repo := NewPostgresSkillRepository(db)
	goSkill := newTestSkill(t, db, repo, "Go")
	sqlSkill := newTestSkill(t, db, repo, "SQL")

	gone, kept := uuid.New(), uuid.New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	now := time.Now().UTC()
	// Log of goSkill ends up as [kept/c, gone/b, kept/a].
	for _, e := range []skill.LogEntry{
		{ProfileID: kept, EvaluatorID: a, Level: 1, Version: 1, RecordedAt: now},
		{ProfileID: gone, EvaluatorID: b, Level: 2, Version: 1, RecordedAt: now},
		{ProfileID: kept, EvaluatorID: c, Level: 3, Version: 1, RecordedAt: now},
	} {
		_, err := repo.ProjectEvaluation(ctx, goSkill.ID, e)
		require.NoError(t, err)
	}
	_, err := repo.ProjectEvaluation(ctx, sqlSkill.ID, skill.LogEntry{ProfileID: gone, EvaluatorID: a, Level: 4, Version: 1, RecordedAt: now})
	require.NoError(t, err)

	withGone, err := repo.ListWithProfileLog(ctx, gone)
	require.NoError(t, err)
	assert.Len(t, withGone, 2)

	n, err := repo.PullProfile(ctx, gone)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := repo.GetByID(ctx, goSkill.ID)
	require.NoError(t, err)
	require.Len(t, got.Log, 2)
	assert.Equal(t, c, got.Log[0].EvaluatorID)
	assert.Equal(t, a, got.Log[1].EvaluatorID)

	got, err = repo.GetByID(ctx, sqlSkill.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Log)

	removed, err := repo.RemoveLogEntry(ctx, goSkill.ID, kept, c)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repo.RemoveLogEntry(ctx, goSkill.ID, kept, c)
	require.NoError(t, err)
	assert.False(t, removed)

	got, err = repo.GetByID(ctx, goSkill.ID)
	require.NoError(t, err)
	require.Len(t, got.Log, 1)
	assert.Equal(t, a, got.Log[0].EvaluatorID)
}

func TestPostgresEvaluationRepository_UpsertAndDistinctIDs(t *testing.T) {
	db := connectTestDB(t)
	ctx := context.Background()
	repo := NewPostgresEvaluationRepository(db)

	key := skill.Evaluation{ProfileID: uuid.New(), SkillID: uuid.New(), EvaluatorID: uuid.New(), Level: 1}
	first, err := repo.Upsert(ctx, key)
	require.NoError(t, err)
	cleanupRows(t, db, "evaluations", first.ID)
	assert.Equal(t, int64(1), first.Version)

	key.Level = 4
	second, err := repo.Upsert(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(2), second.Version)
	assert.Equal(t, 4, second.Level)

	profiles, err := repo.ProfileIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, profiles, key.ProfileID)
	skills, err := repo.SkillIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, skills, key.SkillID)

	n, err := repo.DeleteBySkill(ctx, key.SkillID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPostgresProfileRepository_UpsertRejectsTombstonedProfile(t *testing.T) {
	db := connectTestDB(t)
	ctx := context.Background()
	repo := NewPostgresProfileRepository(db)
	userID := uuid.New()

	first, created, err := repo.Upsert(ctx, profile.Profile{UserID: userID, FirstName: "Ana"})
	require.NoError(t, err)
	cleanupRows(t, db, "profiles", first.ID)
	assert.True(t, created)

	second, created, err := repo.Upsert(ctx, profile.Profile{UserID: userID, FirstName: "Ana Maria"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	_, err = repo.MarkDeleting(ctx, first.ID, time.Now())
	require.NoError(t, err)

	_, _, err = repo.Upsert(ctx, profile.Profile{UserID: userID, FirstName: "Revived"})
	assert.ErrorIs(t, err, ErrConflict)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", got.FirstName)
	assert.NotNil(t, got.DeletingAt)

	_, err = repo.AddExperience(ctx, userID, profile.Experience{ID: uuid.New(), Title: "Engineer"})
	assert.ErrorIs(t, err, ErrNotFound, "tombstoned profiles take no new entries")
}

func TestPostgresProfileRepository_ExperienceEntries(t *testing.T) {
	db := connectTestDB(t)
	ctx := context.Background()
	repo := NewPostgresProfileRepository(db)
	userID := uuid.New()

	p, _, err := repo.Upsert(ctx, profile.Profile{UserID: userID, FirstName: "Ana"})
	require.NoError(t, err)
	cleanupRows(t, db, "profiles", p.ID)

	e1 := profile.Experience{ID: uuid.New(), Title: "Engineer", Company: "Acme", From: time.Now().UTC()}
	e2 := profile.Experience{ID: uuid.New(), Title: "Lead", Company: "Acme", From: time.Now().UTC()}
	_, err = repo.AddExperience(ctx, userID, e1)
	require.NoError(t, err)
	p, err = repo.AddExperience(ctx, userID, e2)
	require.NoError(t, err)
	require.Len(t, p.Experience, 2)
	assert.Equal(t, e2.ID, p.Experience[0].ID)
	assert.Equal(t, e1.ID, p.Experience[1].ID)

	_, err = repo.RemoveExperience(ctx, userID, uuid.New())
	assert.ErrorIs(t, err, ErrEntryNotFound)
	p, err = repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, p.Experience, 2)

	p, err = repo.RemoveExperience(ctx, userID, e1.ID)
	require.NoError(t, err)
	require.Len(t, p.Experience, 1)
	assert.Equal(t, e2.ID, p.Experience[0].ID)

	_, err = repo.RemoveEducation(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
