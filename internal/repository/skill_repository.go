package repository

import (
	"context"
	"encoding/json"
	"time"

	"skill-registry/internal/database"
	"skill-registry/internal/domain/skill"

	"github.com/google/uuid"
)

type SkillRepository interface {
	// UpsertByName creates the skill or overwrites description and link
	// references of the one with the same name. The log is never touched.
	UpsertByName(ctx context.Context, s skill.Skill) (skill.Skill, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (skill.Skill, error)
	List(ctx context.Context) ([]skill.Skill, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	MissingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	// ProjectEvaluation replaces the log entry for (profile, evaluator) with
	// entry and moves it to the front, unless the log already holds an entry
	// for that pair with an equal or higher version. applied reports whether
	// the document changed.
	ProjectEvaluation(ctx context.Context, skillID uuid.UUID, entry skill.LogEntry) (bool, error)
	RemoveLogEntry(ctx context.Context, skillID, profileID, evaluatorID uuid.UUID) (bool, error)
	// PullProfile removes every log entry of profileID from every skill and
	// returns the number of skills changed.
	PullProfile(ctx context.Context, profileID uuid.UUID) (int64, error)
	ListWithProfileLog(ctx context.Context, profileID uuid.UUID) ([]skill.Skill, error)
}

type PostgresSkillRepository struct {
	db database.DB
}

func NewPostgresSkillRepository(db database.DB) *PostgresSkillRepository {
	return &PostgresSkillRepository{db: db}
}

type linkReferenceJSON struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type logEntryJSON struct {
	ProfileID   uuid.UUID `json:"profile_id"`
	EvaluatorID uuid.UUID `json:"evaluator_id"`
	Level       int       `json:"level"`
	Version     int64     `json:"version"`
	RecordedAt  time.Time `json:"recorded_at"`
}

const skillColumns = `id, name, description, link_references, log, created_at, updated_at`

const logKeyCond = `e->>'profile_id' = $3::text AND e->>'evaluator_id' = $4::text`

func (r *PostgresSkillRepository) UpsertByName(ctx context.Context, s skill.Skill) (skill.Skill, bool, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	refs := make([]linkReferenceJSON, 0, len(s.LinkReferences))
	for _, l := range s.LinkReferences {
		refs = append(refs, linkReferenceJSON{Name: l.Name, URL: l.URL})
	}
	refsJSON, err := toJSONB(refs)
	if err != nil {
		return skill.Skill{}, false, err
	}

	now := time.Now().UTC()
	row := r.db.QueryRow(ctx,
		`INSERT INTO skills (id, name, description, link_references, log, created_at, updated_at)
		 VALUES ($1, $2, $3, $4::jsonb, '[]'::jsonb, $5, $5)
		 ON CONFLICT (name) DO UPDATE
		 SET description = EXCLUDED.description,
		     link_references = EXCLUDED.link_references,
		     updated_at = EXCLUDED.updated_at
		 RETURNING `+skillColumns+`, (xmax = 0) AS inserted`,
		s.ID, s.Name, s.Description, refsJSON, now,
	)

	var inserted bool
	out, err := scanSkill(row, &inserted)
	if err != nil {
		return skill.Skill{}, false, err
	}
	return out, inserted, nil
}

func (r *PostgresSkillRepository) GetByID(ctx context.Context, id uuid.UUID) (skill.Skill, error) {
	row := r.db.QueryRow(ctx, `SELECT `+skillColumns+` FROM skills WHERE id = $1`, id)
	return scanSkill(row)
}

func (r *PostgresSkillRepository) List(ctx context.Context) ([]skill.Skill, error) {
	return r.query(ctx, `SELECT `+skillColumns+` FROM skills ORDER BY name ASC`)
}

func (r *PostgresSkillRepository) ListWithProfileLog(ctx context.Context, profileID uuid.UUID) ([]skill.Skill, error) {
	return r.query(ctx,
		`SELECT `+skillColumns+` FROM skills
		 WHERE log @> jsonb_build_array(jsonb_build_object('profile_id', $1::text))
		 ORDER BY name ASC`,
		profileID.String(),
	)
}

func (r *PostgresSkillRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := r.db.Exec(ctx, `DELETE FROM skills WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresSkillRepository) MissingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT id FROM skills WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[uuid.UUID]struct{}, len(ids))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return missingFrom(ids, found), nil
}

func (r *PostgresSkillRepository) ProjectEvaluation(ctx context.Context, skillID uuid.UUID, entry skill.LogEntry) (bool, error) {
	b, err := json.Marshal(toLogEntryJSON(entry))
	if err != nil {
		return false, err
	}

	n, err := r.db.Exec(ctx,
		`UPDATE skills
		 SET log = jsonb_build_array($2::jsonb) || `+filterArrayExpr("log", logKeyCond)+`,
		     updated_at = now()
		 WHERE id = $1
		   AND NOT EXISTS (
		     SELECT 1 FROM jsonb_array_elements(log) AS x(e)
		     WHERE `+logKeyCond+` AND (e->>'version')::bigint >= $5
		   )`,
		skillID, string(b), entry.ProfileID.String(), entry.EvaluatorID.String(), entry.Version,
	)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM skills WHERE id = $1)`, skillID).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

func (r *PostgresSkillRepository) RemoveLogEntry(ctx context.Context, skillID, profileID, evaluatorID uuid.UUID) (bool, error) {
	n, err := r.db.Exec(ctx,
		`UPDATE skills
		 SET log = `+filterArrayExpr("log", `e->>'profile_id' = $2::text AND e->>'evaluator_id' = $3::text`)+`,
		     updated_at = now()
		 WHERE id = $1
		   AND log @> jsonb_build_array(jsonb_build_object('profile_id', $2::text, 'evaluator_id', $3::text))`,
		skillID, profileID.String(), evaluatorID.String(),
	)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresSkillRepository) PullProfile(ctx context.Context, profileID uuid.UUID) (int64, error) {
	return r.db.Exec(ctx,
		`UPDATE skills
		 SET log = `+filterArrayExpr("log", `e->>'profile_id' = $1::text`)+`,
		     updated_at = now()
		 WHERE log @> jsonb_build_array(jsonb_build_object('profile_id', $1::text))`,
		profileID.String(),
	)
}

func (r *PostgresSkillRepository) query(ctx context.Context, sql string, args ...any) ([]skill.Skill, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]skill.Skill, 0)
	for rows.Next() {
		s, err := scanSkill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanSkill(row database.Row, extra ...any) (skill.Skill, error) {
	var (
		s       skill.Skill
		refsRaw []byte
		logRaw  []byte
	)
	dest := append([]any{&s.ID, &s.Name, &s.Description, &refsRaw, &logRaw, &s.CreatedAt, &s.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		if isNoRows(err) {
			return skill.Skill{}, ErrNotFound
		}
		return skill.Skill{}, err
	}

	refs, err := fromJSONB[linkReferenceJSON](refsRaw)
	if err != nil {
		return skill.Skill{}, err
	}
	s.LinkReferences = make([]skill.LinkReference, 0, len(refs))
	for _, l := range refs {
		s.LinkReferences = append(s.LinkReferences, skill.LinkReference{Name: l.Name, URL: l.URL})
	}

	entries, err := fromJSONB[logEntryJSON](logRaw)
	if err != nil {
		return skill.Skill{}, err
	}
	s.Log = make([]skill.LogEntry, 0, len(entries))
	for _, e := range entries {
		s.Log = append(s.Log, skill.LogEntry{
			ProfileID:   e.ProfileID,
			EvaluatorID: e.EvaluatorID,
			Level:       e.Level,
			Version:     e.Version,
			RecordedAt:  e.RecordedAt,
		})
	}
	return s, nil
}

func toLogEntryJSON(e skill.LogEntry) logEntryJSON {
	return logEntryJSON{
		ProfileID:   e.ProfileID,
		EvaluatorID: e.EvaluatorID,
		Level:       e.Level,
		Version:     e.Version,
		RecordedAt:  e.RecordedAt.UTC(),
	}
}
