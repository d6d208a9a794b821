package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"skill-registry/internal/domain/skill"
	"skill-registry/internal/repository"

	"github.com/google/uuid"
)

type SkillInput struct {
	Name           string
	Description    string
	LinkReferences []skill.LinkReference
}

type SkillDeleteReport struct {
	SkillID             uuid.UUID `json:"skillId"`
	DeclarationsRemoved int64     `json:"declarationsRemoved"`
	EvaluationsRemoved  int64     `json:"evaluationsRemoved"`
}

// TitleResolver names a reference link from the page it points to.
type TitleResolver interface {
	ResolveTitle(ctx context.Context, rawURL string) (string, error)
}

type SkillUsecase interface {
	ListSkills(ctx context.Context) ([]skill.Skill, error)
	GetSkill(ctx context.Context, id uuid.UUID) (skill.Skill, error)
	UpsertSkill(ctx context.Context, in SkillInput) (skill.Skill, bool, error)
	DeleteSkill(ctx context.Context, id uuid.UUID) (SkillDeleteReport, error)
}

type Skills struct {
	repo        repository.SkillRepository
	evaluations repository.EvaluationRepository
	profiles    repository.ProfileRepository
	titles      TitleResolver
	events      EventPublisher
	logger      *log.Logger
}

func NewSkillUsecase(repo repository.SkillRepository, evaluations repository.EvaluationRepository, profiles repository.ProfileRepository, titles TitleResolver, events EventPublisher, logger *log.Logger) *Skills {
	return &Skills{
		repo:        repo,
		evaluations: evaluations,
		profiles:    profiles,
		titles:      titles,
		events:      publisherOrNoop(events),
		logger:      logger,
	}
}

func (u *Skills) ListSkills(ctx context.Context) ([]skill.Skill, error) {
	items, err := u.repo.List(ctx)
	if err != nil {
		return nil, internalError(err)
	}
	return items, nil
}

func (u *Skills) GetSkill(ctx context.Context, id uuid.UUID) (skill.Skill, error) {
	s, err := u.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return skill.Skill{}, ErrSkillNotFound
		}
		return skill.Skill{}, internalError(err)
	}
	return s, nil
}

// UpsertSkill creates the skill or overwrites description and link references
// of the one with the same name. created is false on the update path.
func (u *Skills) UpsertSkill(ctx context.Context, in SkillInput) (skill.Skill, bool, error) {
	name := strings.TrimSpace(in.Name)
	verr := &ValidationError{}
	if name == "" {
		verr.Add("name", "is required")
	}

	links := make([]skill.LinkReference, 0, len(in.LinkReferences))
	for i, l := range in.LinkReferences {
		field := fmt.Sprintf("linkReferences[%d]", i)
		link := skill.LinkReference{Name: strings.TrimSpace(l.Name), URL: strings.TrimSpace(l.URL)}
		if !isHTTPURL(link.URL) {
			verr.Add(field+".url", "must be an absolute http(s) url")
			continue
		}
		if link.Name == "" {
			link.Name = u.resolveTitle(ctx, link.URL)
			if link.Name == "" {
				verr.Add(field+".name", "is required and could not be resolved from the page")
				continue
			}
		}
		links = append(links, link)
	}
	if err := verr.Err(); err != nil {
		return skill.Skill{}, false, err
	}

	now := time.Now().UTC()
	saved, created, err := u.repo.UpsertByName(ctx, skill.Skill{
		ID:             uuid.New(),
		Name:           name,
		Description:    strings.TrimSpace(in.Description),
		LinkReferences: links,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return skill.Skill{}, false, ErrNameTaken
		}
		return skill.Skill{}, false, internalError(err)
	}
	return saved, created, nil
}

// DeleteSkill removes the declarations and ledger records of the skill before
// the skill itself, so a retry after a partial failure finishes the job.
func (u *Skills) DeleteSkill(ctx context.Context, id uuid.UUID) (SkillDeleteReport, error) {
	report := SkillDeleteReport{SkillID: id}
	if _, err := u.GetSkill(ctx, id); err != nil {
		return report, err
	}

	n, err := u.profiles.PullSkillDeclarations(ctx, id)
	if err != nil {
		return report, internalError(err)
	}
	report.DeclarationsRemoved = n

	n, err = u.evaluations.DeleteBySkill(ctx, id)
	if err != nil {
		return report, internalError(err)
	}
	report.EvaluationsRemoved = n

	deleted, err := u.repo.Delete(ctx, id)
	if err != nil {
		return report, internalError(err)
	}
	if !deleted {
		return report, ErrSkillNotFound
	}

	if u.logger != nil {
		u.logger.Printf("[Skills] Deleted skill=%s declarations=%d evaluations=%d", id, report.DeclarationsRemoved, report.EvaluationsRemoved)
	}
	u.events.Publish(EventSkillDeleted, report)
	return report, nil
}

func (u *Skills) resolveTitle(ctx context.Context, rawURL string) string {
	if u.titles == nil {
		return ""
	}
	title, err := u.titles.ResolveTitle(ctx, rawURL)
	if err != nil {
		if u.logger != nil {
			u.logger.Printf("[Skills] Link title unresolved url=%s err=%v", rawURL, err)
		}
		return ""
	}
	return strings.TrimSpace(title)
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
