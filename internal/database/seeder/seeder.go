package seeder

import (
	"context"

	"skill-registry/internal/domain/permission"
	"skill-registry/internal/domain/skill"
	"skill-registry/internal/usecase"
)

type Seeder interface {
	Name() string
	Run(ctx context.Context, t Target) (int, error)
}

type MenuOptionStore interface {
	ListMenuOptions(ctx context.Context) ([]permission.MenuOption, error)
	CreateMenuOption(ctx context.Context, in usecase.MenuOptionInput) (permission.MenuOption, error)
}

type AccessLevelStore interface {
	ListAccessLevels(ctx context.Context) ([]permission.AccessLevel, error)
	UpsertAccessLevel(ctx context.Context, in usecase.AccessLevelInput) (permission.AccessLevel, bool, error)
}

type SkillStore interface {
	ListSkills(ctx context.Context) ([]skill.Skill, error)
	UpsertSkill(ctx context.Context, in usecase.SkillInput) (skill.Skill, bool, error)
}

// Target is what the seeders write through. Going through the usecases keeps
// seeded data under the same validation as API writes, whatever the store.
type Target struct {
	MenuOptions  MenuOptionStore
	AccessLevels AccessLevelStore
	Skills       SkillStore
}
