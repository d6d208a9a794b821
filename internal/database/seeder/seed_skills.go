package seeder

import (
	"context"
	"errors"
	"strings"

	"skill-registry/internal/domain/skill"
	"skill-registry/internal/usecase"
)

type SkillSeeder struct {
	Skills []SkillSeed
}

func (SkillSeeder) Name() string { return "skills" }

func (s SkillSeeder) Run(ctx context.Context, t Target) (int, error) {
	if t.Skills == nil {
		return 0, errors.New("no skill store")
	}
	existing, err := t.Skills.ListSkills(ctx)
	if err != nil {
		return 0, err
	}
	have := make(map[string]struct{}, len(existing))
	for _, sk := range existing {
		have[strings.ToLower(sk.Name)] = struct{}{}
	}

	created := 0
	for _, it := range s.Skills {
		name := strings.TrimSpace(it.Name)
		if _, ok := have[strings.ToLower(name)]; ok {
			continue
		}
		links := make([]skill.LinkReference, 0, len(it.Links))
		for _, l := range it.Links {
			links = append(links, skill.LinkReference{Name: l.Name, URL: l.URL})
		}
		_, _, err := t.Skills.UpsertSkill(ctx, usecase.SkillInput{
			Name:           name,
			Description:    it.Description,
			LinkReferences: links,
		})
		if err != nil {
			return created, err
		}
		have[strings.ToLower(name)] = struct{}{}
		created++
	}
	return created, nil
}
