package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"skill-registry/internal/domain/profile"
	"skill-registry/internal/domain/user"
	"skill-registry/internal/repository"

	"github.com/google/uuid"
)

type ProfileInput struct {
	FirstName      string
	LastName       string
	Occupation     string
	Picture        string
	Company        string
	Location       string
	Active         *bool
	GithubUsername string
	Experience     []profile.Experience
	Education      []profile.Education
	Social         []profile.Social
	Skills         []profile.SkillDeclaration
}

type ProfileUsecase interface {
	ListProfiles(ctx context.Context) ([]profile.Profile, error)
	GetProfile(ctx context.Context, id uuid.UUID) (profile.Profile, error)
	GetProfileByUser(ctx context.Context, userID uuid.UUID) (profile.Profile, error)
	UpsertProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (profile.Profile, bool, error)
	AddExperience(ctx context.Context, userID uuid.UUID, e profile.Experience) (profile.Profile, error)
	RemoveExperience(ctx context.Context, userID, entryID uuid.UUID) (profile.Profile, error)
	AddEducation(ctx context.Context, userID uuid.UUID, e profile.Education) (profile.Profile, error)
	RemoveEducation(ctx context.Context, userID, entryID uuid.UUID) (profile.Profile, error)
}

type Profiles struct {
	repo   repository.ProfileRepository
	skills repository.SkillRepository
	users  user.Repository
}

func NewProfileUsecase(repo repository.ProfileRepository, skills repository.SkillRepository, users user.Repository) *Profiles {
	return &Profiles{repo: repo, skills: skills, users: users}
}

func (u *Profiles) ListProfiles(ctx context.Context) ([]profile.Profile, error) {
	items, err := u.repo.List(ctx)
	if err != nil {
		return nil, internalError(err)
	}
	return items, nil
}

// GetProfile hides profiles with a cascade in progress.
func (u *Profiles) GetProfile(ctx context.Context, id uuid.UUID) (profile.Profile, error) {
	p, err := u.repo.GetByID(ctx, id)
	return visibleProfile(p, err)
}

func (u *Profiles) GetProfileByUser(ctx context.Context, userID uuid.UUID) (profile.Profile, error) {
	p, err := u.repo.GetByUserID(ctx, userID)
	return visibleProfile(p, err)
}

// UpsertProfile replaces the profile of userID wholesale, creating it on first
// use. Entry ids are kept when supplied and generated otherwise.
func (u *Profiles) UpsertProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (profile.Profile, bool, error) {
	verr := &ValidationError{}
	firstName := strings.TrimSpace(in.FirstName)
	if firstName == "" {
		verr.Add("firstName", "is required")
	}

	experience := make([]profile.Experience, 0, len(in.Experience))
	for i, e := range in.Experience {
		e = normalizeExperience(e)
		validateExperience(verr, fmt.Sprintf("experience[%d]", i), e)
		experience = append(experience, e)
	}
	education := make([]profile.Education, 0, len(in.Education))
	for i, e := range in.Education {
		e = normalizeEducation(e)
		validateEducation(verr, fmt.Sprintf("education[%d]", i), e)
		education = append(education, e)
	}
	social := make([]profile.Social, 0, len(in.Social))
	for i, s := range in.Social {
		s.Title = strings.TrimSpace(s.Title)
		s.URL = strings.TrimSpace(s.URL)
		if s.Title == "" {
			verr.Add(fmt.Sprintf("social[%d].title", i), "is required")
		}
		if s.URL == "" {
			verr.Add(fmt.Sprintf("social[%d].url", i), "is required")
		}
		social = append(social, s)
	}

	skills, err := u.checkDeclarations(ctx, in.Skills, verr)
	if err != nil {
		return profile.Profile{}, false, err
	}
	if err := verr.Err(); err != nil {
		return profile.Profile{}, false, err
	}

	if _, err := u.users.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return profile.Profile{}, false, ErrUserNotFound
		}
		return profile.Profile{}, false, internalError(err)
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}
	now := time.Now().UTC()
	saved, created, err := u.repo.Upsert(ctx, profile.Profile{
		ID:             uuid.New(),
		UserID:         userID,
		FirstName:      firstName,
		LastName:       strings.TrimSpace(in.LastName),
		Occupation:     strings.TrimSpace(in.Occupation),
		Picture:        strings.TrimSpace(in.Picture),
		Company:        strings.TrimSpace(in.Company),
		Location:       strings.TrimSpace(in.Location),
		Active:         active,
		GithubUsername: strings.TrimSpace(in.GithubUsername),
		Experience:     experience,
		Education:      education,
		Social:         social,
		Skills:         skills,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return profile.Profile{}, false, ErrProfileDeleting
		case errors.Is(err, repository.ErrDuplicate):
			return profile.Profile{}, false, ErrConflict
		default:
			return profile.Profile{}, false, internalError(err)
		}
	}
	return saved, created, nil
}

// AddExperience puts e at the front of the list.
func (u *Profiles) AddExperience(ctx context.Context, userID uuid.UUID, e profile.Experience) (profile.Profile, error) {
	e = normalizeExperience(e)
	verr := &ValidationError{}
	validateExperience(verr, "experience", e)
	if err := verr.Err(); err != nil {
		return profile.Profile{}, err
	}
	p, err := u.repo.AddExperience(ctx, userID, e)
	return mapEntryWrite(p, err)
}

func (u *Profiles) RemoveExperience(ctx context.Context, userID, entryID uuid.UUID) (profile.Profile, error) {
	p, err := u.repo.RemoveExperience(ctx, userID, entryID)
	return mapEntryWrite(p, err)
}

func (u *Profiles) AddEducation(ctx context.Context, userID uuid.UUID, e profile.Education) (profile.Profile, error) {
	e = normalizeEducation(e)
	verr := &ValidationError{}
	validateEducation(verr, "education", e)
	if err := verr.Err(); err != nil {
		return profile.Profile{}, err
	}
	p, err := u.repo.AddEducation(ctx, userID, e)
	return mapEntryWrite(p, err)
}

func (u *Profiles) RemoveEducation(ctx context.Context, userID, entryID uuid.UUID) (profile.Profile, error) {
	p, err := u.repo.RemoveEducation(ctx, userID, entryID)
	return mapEntryWrite(p, err)
}

func (u *Profiles) checkDeclarations(ctx context.Context, in []profile.SkillDeclaration, verr *ValidationError) ([]profile.SkillDeclaration, error) {
	out := make([]profile.SkillDeclaration, 0, len(in))
	seen := make(map[uuid.UUID]struct{}, len(in))
	ids := make([]uuid.UUID, 0, len(in))
	for i, d := range in {
		if d.SkillID == uuid.Nil {
			verr.Add(fmt.Sprintf("skills[%d].skillId", i), "is required")
			continue
		}
		if _, dup := seen[d.SkillID]; dup {
			continue
		}
		seen[d.SkillID] = struct{}{}
		d.URL = strings.TrimSpace(d.URL)
		out = append(out, d)
		ids = append(ids, d.SkillID)
	}
	if len(ids) == 0 {
		return out, nil
	}

	missing, err := u.skills.MissingIDs(ctx, ids)
	if err != nil {
		return nil, internalError(err)
	}
	for _, id := range missing {
		verr.Add("skills", "skill "+id.String()+" does not exist")
	}
	return out, nil
}

func visibleProfile(p profile.Profile, err error) (profile.Profile, error) {
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return profile.Profile{}, ErrProfileNotFound
		}
		return profile.Profile{}, internalError(err)
	}
	if p.Deleting() {
		return profile.Profile{}, ErrProfileNotFound
	}
	return p, nil
}

func mapEntryWrite(p profile.Profile, err error) (profile.Profile, error) {
	if err == nil {
		return p, nil
	}
	switch {
	case errors.Is(err, repository.ErrEntryNotFound):
		return profile.Profile{}, ErrEntryNotFound
	case errors.Is(err, repository.ErrNotFound):
		return profile.Profile{}, ErrProfileNotFound
	default:
		return profile.Profile{}, internalError(err)
	}
}

// normalizeExperience trims text, assigns a missing id and drops the end date
// of a current position.
func normalizeExperience(e profile.Experience) profile.Experience {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.Title = strings.TrimSpace(e.Title)
	e.Company = strings.TrimSpace(e.Company)
	e.Location = strings.TrimSpace(e.Location)
	e.Description = strings.TrimSpace(e.Description)
	if e.Current {
		e.To = nil
	}
	return e
}

func normalizeEducation(e profile.Education) profile.Education {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.Title = strings.TrimSpace(e.Title)
	e.School = strings.TrimSpace(e.School)
	e.Degree = strings.TrimSpace(e.Degree)
	e.FieldOfStudy = strings.TrimSpace(e.FieldOfStudy)
	e.Description = strings.TrimSpace(e.Description)
	if e.Current {
		e.To = nil
	}
	return e
}

func validateExperience(verr *ValidationError, field string, e profile.Experience) {
	if e.Title == "" {
		verr.Add(field+".title", "is required")
	}
	validatePeriod(verr, field, e.From, e.To)
}

func validateEducation(verr *ValidationError, field string, e profile.Education) {
	if e.Title == "" {
		verr.Add(field+".title", "is required")
	}
	if e.School == "" {
		verr.Add(field+".school", "is required")
	}
	validatePeriod(verr, field, e.From, e.To)
}

func validatePeriod(verr *ValidationError, field string, from time.Time, to *time.Time) {
	if from.IsZero() {
		verr.Add(field+".from", "is required")
		return
	}
	if to != nil && to.Before(from) {
		verr.Add(field+".to", "must not be before from")
	}
}
