package seeder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"skill-registry/internal/usecase"

	"github.com/google/uuid"
)

type AccessLevelSeeder struct {
	Levels []AccessLevelSeed
}

func (AccessLevelSeeder) Name() string { return "access_levels" }

func (s AccessLevelSeeder) Run(ctx context.Context, t Target) (int, error) {
	if t.AccessLevels == nil || t.MenuOptions == nil {
		return 0, errors.New("no access level store")
	}
	levels, err := t.AccessLevels.ListAccessLevels(ctx)
	if err != nil {
		return 0, err
	}
	have := make(map[string]struct{}, len(levels))
	for _, l := range levels {
		have[strings.ToLower(l.Name)] = struct{}{}
	}

	opts, err := t.MenuOptions.ListMenuOptions(ctx)
	if err != nil {
		return 0, err
	}
	paths := menuPaths(opts)

	created := 0
	for _, l := range s.Levels {
		name := strings.TrimSpace(l.Name)
		if _, ok := have[strings.ToLower(name)]; ok {
			continue
		}
		ids := make([]uuid.UUID, 0, len(l.Menus))
		for _, p := range l.Menus {
			id, ok := paths[p]
			if !ok {
				return created, fmt.Errorf("access level %q: menu %q not found", name, p)
			}
			ids = append(ids, id)
		}
		if _, _, err := t.AccessLevels.UpsertAccessLevel(ctx, usecase.AccessLevelInput{Name: name, MenuOptionIDs: ids}); err != nil {
			return created, err
		}
		have[strings.ToLower(name)] = struct{}{}
		created++
	}
	return created, nil
}
