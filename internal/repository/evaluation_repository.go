package repository

import (
	"context"
	"time"

	"skill-registry/internal/database"
	"skill-registry/internal/domain/skill"

	"github.com/google/uuid"
)

type EvaluationRepository interface {
	// Upsert writes the record keyed by (profile, skill, evaluator), bumping
	// its version, and returns the stored record.
	Upsert(ctx context.Context, e skill.Evaluation) (skill.Evaluation, error)
	GetByID(ctx context.Context, id uuid.UUID) (skill.Evaluation, error)
	List(ctx context.Context) ([]skill.Evaluation, error)
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]skill.Evaluation, error)
	ListBySkill(ctx context.Context, skillID uuid.UUID) ([]skill.Evaluation, error)
	DeleteByProfile(ctx context.Context, profileID uuid.UUID) (int64, error)
	DeleteBySkill(ctx context.Context, skillID uuid.UUID) (int64, error)
	DeleteByKey(ctx context.Context, profileID, skillID, evaluatorID uuid.UUID) (bool, error)
	// ProfileIDs lists the distinct profiles referenced by the ledger.
	ProfileIDs(ctx context.Context) ([]uuid.UUID, error)
	// SkillIDs lists the distinct skills referenced by the ledger.
	SkillIDs(ctx context.Context) ([]uuid.UUID, error)
}

type PostgresEvaluationRepository struct {
	db database.DB
}

func NewPostgresEvaluationRepository(db database.DB) *PostgresEvaluationRepository {
	return &PostgresEvaluationRepository{db: db}
}

const evaluationColumns = `id, evaluator_id, profile_id, skill_id, level, version, created_at, updated_at`

func (r *PostgresEvaluationRepository) Upsert(ctx context.Context, e skill.Evaluation) (skill.Evaluation, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := time.Now().UTC()
	row := r.db.QueryRow(ctx,
		`INSERT INTO evaluations (id, evaluator_id, profile_id, skill_id, level, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, 1, $6, $6)
		 ON CONFLICT (profile_id, skill_id, evaluator_id) DO UPDATE
		 SET level = EXCLUDED.level,
		     version = evaluations.version + 1,
		     updated_at = EXCLUDED.updated_at
		 RETURNING `+evaluationColumns,
		e.ID, e.EvaluatorID, e.ProfileID, e.SkillID, e.Level, now,
	)
	return scanEvaluation(row)
}

func (r *PostgresEvaluationRepository) GetByID(ctx context.Context, id uuid.UUID) (skill.Evaluation, error) {
	row := r.db.QueryRow(ctx, `SELECT `+evaluationColumns+` FROM evaluations WHERE id = $1`, id)
	return scanEvaluation(row)
}

func (r *PostgresEvaluationRepository) List(ctx context.Context) ([]skill.Evaluation, error) {
	return r.query(ctx, `SELECT `+evaluationColumns+` FROM evaluations ORDER BY updated_at DESC`)
}

func (r *PostgresEvaluationRepository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]skill.Evaluation, error) {
	return r.query(ctx,
		`SELECT `+evaluationColumns+` FROM evaluations WHERE profile_id = $1 ORDER BY updated_at DESC`,
		profileID,
	)
}

func (r *PostgresEvaluationRepository) ListBySkill(ctx context.Context, skillID uuid.UUID) ([]skill.Evaluation, error) {
	return r.query(ctx,
		`SELECT `+evaluationColumns+` FROM evaluations WHERE skill_id = $1 ORDER BY updated_at DESC`,
		skillID,
	)
}

func (r *PostgresEvaluationRepository) DeleteByProfile(ctx context.Context, profileID uuid.UUID) (int64, error) {
	return r.db.Exec(ctx, `DELETE FROM evaluations WHERE profile_id = $1`, profileID)
}

func (r *PostgresEvaluationRepository) DeleteBySkill(ctx context.Context, skillID uuid.UUID) (int64, error) {
	return r.db.Exec(ctx, `DELETE FROM evaluations WHERE skill_id = $1`, skillID)
}

func (r *PostgresEvaluationRepository) DeleteByKey(ctx context.Context, profileID, skillID, evaluatorID uuid.UUID) (bool, error) {
	n, err := r.db.Exec(ctx,
		`DELETE FROM evaluations WHERE profile_id = $1 AND skill_id = $2 AND evaluator_id = $3`,
		profileID, skillID, evaluatorID,
	)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresEvaluationRepository) ProfileIDs(ctx context.Context) ([]uuid.UUID, error) {
	return r.distinctIDs(ctx, `SELECT DISTINCT profile_id FROM evaluations`)
}

func (r *PostgresEvaluationRepository) SkillIDs(ctx context.Context) ([]uuid.UUID, error) {
	return r.distinctIDs(ctx, `SELECT DISTINCT skill_id FROM evaluations`)
}

func (r *PostgresEvaluationRepository) distinctIDs(ctx context.Context, sql string) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresEvaluationRepository) query(ctx context.Context, sql string, args ...any) ([]skill.Evaluation, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]skill.Evaluation, 0)
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanEvaluation(row database.Row) (skill.Evaluation, error) {
	var e skill.Evaluation
	if err := row.Scan(&e.ID, &e.EvaluatorID, &e.ProfileID, &e.SkillID, &e.Level, &e.Version, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if isNoRows(err) {
			return skill.Evaluation{}, ErrNotFound
		}
		return skill.Evaluation{}, err
	}
	return e, nil
}
