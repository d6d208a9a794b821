package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"skill-registry/internal/database"
	"skill-registry/internal/domain/profile"

	"github.com/google/uuid"
)

type ProfileRepository interface {
	// Upsert creates or replaces the profile of p.UserID. A profile that is
	// being deleted is never overwritten; ErrConflict is returned instead.
	Upsert(ctx context.Context, p profile.Profile) (profile.Profile, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (profile.Profile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (profile.Profile, error)
	// List returns live profiles only.
	List(ctx context.Context) ([]profile.Profile, error)
	ListDeleting(ctx context.Context) ([]profile.Profile, error)
	// MarkDeleting sets the tombstone unless it is already set.
	MarkDeleting(ctx context.Context, id uuid.UUID, at time.Time) (profile.Profile, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	AddExperience(ctx context.Context, userID uuid.UUID, e profile.Experience) (profile.Profile, error)
	RemoveExperience(ctx context.Context, userID, entryID uuid.UUID) (profile.Profile, error)
	AddEducation(ctx context.Context, userID uuid.UUID, e profile.Education) (profile.Profile, error)
	RemoveEducation(ctx context.Context, userID, entryID uuid.UUID) (profile.Profile, error)
	// PullSkillDeclarations drops declarations of skillID from every profile.
	PullSkillDeclarations(ctx context.Context, skillID uuid.UUID) (int64, error)
}

type PostgresProfileRepository struct {
	db database.DB
}

func NewPostgresProfileRepository(db database.DB) *PostgresProfileRepository {
	return &PostgresProfileRepository{db: db}
}

type experienceJSON struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location"`
	From        time.Time  `json:"from"`
	To          *time.Time `json:"to,omitempty"`
	Current     bool       `json:"current"`
	Description string     `json:"description"`
}

type educationJSON struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	School       string     `json:"school"`
	Degree       string     `json:"degree"`
	FieldOfStudy string     `json:"field_of_study"`
	From         time.Time  `json:"from"`
	To           *time.Time `json:"to,omitempty"`
	Current      bool       `json:"current"`
	Description  string     `json:"description"`
}

type socialJSON struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type skillDeclarationJSON struct {
	SkillID uuid.UUID `json:"skill_id"`
	URL     string    `json:"url"`
}

const profileColumns = `id, user_id, first_name, last_name, occupation, picture, company, location, active,
	github_username, experience, education, social, skills, deleting_at, created_at, updated_at`

func (r *PostgresProfileRepository) Upsert(ctx context.Context, p profile.Profile) (profile.Profile, bool, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	exp, err := toJSONB(experienceToJSON(p.Experience))
	if err != nil {
		return profile.Profile{}, false, err
	}
	edu, err := toJSONB(educationToJSON(p.Education))
	if err != nil {
		return profile.Profile{}, false, err
	}
	soc, err := toJSONB(socialToJSON(p.Social))
	if err != nil {
		return profile.Profile{}, false, err
	}
	decl, err := toJSONB(declarationsToJSON(p.Skills))
	if err != nil {
		return profile.Profile{}, false, err
	}

	now := time.Now().UTC()
	row := r.db.QueryRow(ctx,
		`INSERT INTO profiles (id, user_id, first_name, last_name, occupation, picture, company, location, active,
		   github_username, experience, education, social, skills, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12::jsonb, $13::jsonb, $14::jsonb, $15, $15)
		 ON CONFLICT (user_id) DO UPDATE
		 SET first_name = EXCLUDED.first_name,
		     last_name = EXCLUDED.last_name,
		     occupation = EXCLUDED.occupation,
		     picture = EXCLUDED.picture,
		     company = EXCLUDED.company,
		     location = EXCLUDED.location,
		     active = EXCLUDED.active,
		     github_username = EXCLUDED.github_username,
		     experience = EXCLUDED.experience,
		     education = EXCLUDED.education,
		     social = EXCLUDED.social,
		     skills = EXCLUDED.skills,
		     updated_at = EXCLUDED.updated_at
		 WHERE profiles.deleting_at IS NULL
		 RETURNING `+profileColumns+`, (xmax = 0) AS inserted`,
		p.ID, p.UserID, p.FirstName, p.LastName, p.Occupation, p.Picture, p.Company, p.Location, p.Active,
		p.GithubUsername, exp, edu, soc, decl, now,
	)

	var inserted bool
	out, err := scanProfile(row, &inserted)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return profile.Profile{}, false, ErrConflict
		}
		return profile.Profile{}, false, err
	}
	return out, inserted, nil
}

func (r *PostgresProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (profile.Profile, error) {
	row := r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	return scanProfile(row)
}

func (r *PostgresProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (profile.Profile, error) {
	row := r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)
	return scanProfile(row)
}

func (r *PostgresProfileRepository) List(ctx context.Context) ([]profile.Profile, error) {
	return r.query(ctx, `SELECT `+profileColumns+` FROM profiles WHERE deleting_at IS NULL ORDER BY created_at ASC`)
}

func (r *PostgresProfileRepository) ListDeleting(ctx context.Context) ([]profile.Profile, error) {
	return r.query(ctx, `SELECT `+profileColumns+` FROM profiles WHERE deleting_at IS NOT NULL ORDER BY deleting_at ASC`)
}

func (r *PostgresProfileRepository) MarkDeleting(ctx context.Context, id uuid.UUID, at time.Time) (profile.Profile, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE profiles SET deleting_at = COALESCE(deleting_at, $2), updated_at = now()
		 WHERE id = $1
		 RETURNING `+profileColumns,
		id, at.UTC(),
	)
	return scanProfile(row)
}

func (r *PostgresProfileRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresProfileRepository) AddExperience(ctx context.Context, userID uuid.UUID, e profile.Experience) (profile.Profile, error) {
	return r.prependEntry(ctx, "experience", userID, experienceToJSON([]profile.Experience{e})[0])
}

func (r *PostgresProfileRepository) RemoveExperience(ctx context.Context, userID, entryID uuid.UUID) (profile.Profile, error) {
	return r.removeEntry(ctx, "experience", userID, entryID)
}

func (r *PostgresProfileRepository) AddEducation(ctx context.Context, userID uuid.UUID, e profile.Education) (profile.Profile, error) {
	return r.prependEntry(ctx, "education", userID, educationToJSON([]profile.Education{e})[0])
}

func (r *PostgresProfileRepository) RemoveEducation(ctx context.Context, userID, entryID uuid.UUID) (profile.Profile, error) {
	return r.removeEntry(ctx, "education", userID, entryID)
}

func (r *PostgresProfileRepository) PullSkillDeclarations(ctx context.Context, skillID uuid.UUID) (int64, error) {
	return r.db.Exec(ctx,
		`UPDATE profiles
		 SET skills = `+filterArrayExpr("skills", `e->>'skill_id' = $1::text`)+`,
		     updated_at = now()
		 WHERE skills @> jsonb_build_array(jsonb_build_object('skill_id', $1::text))`,
		skillID.String(),
	)
}

// prependEntry and removeEntry only ever receive the fixed column names above.
func (r *PostgresProfileRepository) prependEntry(ctx context.Context, column string, userID uuid.UUID, entry any) (profile.Profile, error) {
	b, err := json.Marshal(entry)
	if err != nil {
		return profile.Profile{}, err
	}
	row := r.db.QueryRow(ctx,
		`UPDATE profiles SET `+column+` = jsonb_build_array($2::jsonb) || `+column+`, updated_at = now()
		 WHERE user_id = $1 AND deleting_at IS NULL
		 RETURNING `+profileColumns,
		userID, string(b),
	)
	return scanProfile(row)
}

func (r *PostgresProfileRepository) removeEntry(ctx context.Context, column string, userID, entryID uuid.UUID) (profile.Profile, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE profiles SET `+column+` = `+filterArrayExpr(column, `e->>'id' = $2::text`)+`, updated_at = now()
		 WHERE user_id = $1 AND deleting_at IS NULL
		   AND `+column+` @> jsonb_build_array(jsonb_build_object('id', $2::text))
		 RETURNING `+profileColumns,
		userID, entryID.String(),
	)
	p, err := scanProfile(row)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return profile.Profile{}, err
	}

	var live bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM profiles WHERE user_id = $1 AND deleting_at IS NULL)`, userID,
	).Scan(&live); err != nil {
		return profile.Profile{}, err
	}
	if live {
		return profile.Profile{}, ErrEntryNotFound
	}
	return profile.Profile{}, ErrNotFound
}

func (r *PostgresProfileRepository) query(ctx context.Context, sql string, args ...any) ([]profile.Profile, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]profile.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanProfile(row database.Row, extra ...any) (profile.Profile, error) {
	var (
		p          profile.Profile
		expRaw     []byte
		eduRaw     []byte
		socRaw     []byte
		declRaw    []byte
		deletingAt *time.Time
	)
	dest := append([]any{
		&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.Occupation, &p.Picture, &p.Company, &p.Location, &p.Active,
		&p.GithubUsername, &expRaw, &eduRaw, &socRaw, &declRaw, &deletingAt, &p.CreatedAt, &p.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		if isNoRows(err) {
			return profile.Profile{}, ErrNotFound
		}
		return profile.Profile{}, err
	}
	p.DeletingAt = deletingAt

	exp, err := fromJSONB[experienceJSON](expRaw)
	if err != nil {
		return profile.Profile{}, err
	}
	edu, err := fromJSONB[educationJSON](eduRaw)
	if err != nil {
		return profile.Profile{}, err
	}
	soc, err := fromJSONB[socialJSON](socRaw)
	if err != nil {
		return profile.Profile{}, err
	}
	decl, err := fromJSONB[skillDeclarationJSON](declRaw)
	if err != nil {
		return profile.Profile{}, err
	}

	p.Experience = make([]profile.Experience, 0, len(exp))
	for _, e := range exp {
		p.Experience = append(p.Experience, profile.Experience{
			ID: e.ID, Title: e.Title, Company: e.Company, Location: e.Location,
			From: e.From, To: e.To, Current: e.Current, Description: e.Description,
		})
	}
	p.Education = make([]profile.Education, 0, len(edu))
	for _, e := range edu {
		p.Education = append(p.Education, profile.Education{
			ID: e.ID, Title: e.Title, School: e.School, Degree: e.Degree, FieldOfStudy: e.FieldOfStudy,
			From: e.From, To: e.To, Current: e.Current, Description: e.Description,
		})
	}
	p.Social = make([]profile.Social, 0, len(soc))
	for _, s := range soc {
		p.Social = append(p.Social, profile.Social{Title: s.Title, URL: s.URL})
	}
	p.Skills = make([]profile.SkillDeclaration, 0, len(decl))
	for _, d := range decl {
		p.Skills = append(p.Skills, profile.SkillDeclaration{SkillID: d.SkillID, URL: d.URL})
	}
	return p, nil
}

func experienceToJSON(in []profile.Experience) []experienceJSON {
	out := make([]experienceJSON, 0, len(in))
	for _, e := range in {
		out = append(out, experienceJSON{
			ID: e.ID, Title: e.Title, Company: e.Company, Location: e.Location,
			From: e.From.UTC(), To: e.To, Current: e.Current, Description: e.Description,
		})
	}
	return out
}

func educationToJSON(in []profile.Education) []educationJSON {
	out := make([]educationJSON, 0, len(in))
	for _, e := range in {
		out = append(out, educationJSON{
			ID: e.ID, Title: e.Title, School: e.School, Degree: e.Degree, FieldOfStudy: e.FieldOfStudy,
			From: e.From.UTC(), To: e.To, Current: e.Current, Description: e.Description,
		})
	}
	return out
}

func socialToJSON(in []profile.Social) []socialJSON {
	out := make([]socialJSON, 0, len(in))
	for _, s := range in {
		out = append(out, socialJSON{Title: s.Title, URL: s.URL})
	}
	return out
}

func declarationsToJSON(in []profile.SkillDeclaration) []skillDeclarationJSON {
	out := make([]skillDeclarationJSON, 0, len(in))
	for _, d := range in {
		out = append(out, skillDeclarationJSON{SkillID: d.SkillID, URL: d.URL})
	}
	return out
}
