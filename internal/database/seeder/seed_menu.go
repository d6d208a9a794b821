package seeder

import (
	"context"
	"errors"
	"strings"

	"skill-registry/internal/domain/permission"
	"skill-registry/internal/usecase"

	"github.com/google/uuid"
)

type MenuSeeder struct {
	Nodes []MenuSeed
}

func (MenuSeeder) Name() string { return "menu_options" }

func (s MenuSeeder) Run(ctx context.Context, t Target) (int, error) {
	if t.MenuOptions == nil {
		return 0, errors.New("no menu option store")
	}
	existing, err := t.MenuOptions.ListMenuOptions(ctx)
	if err != nil {
		return 0, err
	}

	type key struct {
		parent uuid.UUID
		name   string
	}
	index := make(map[key]uuid.UUID, len(existing))
	for _, m := range existing {
		var parent uuid.UUID
		if m.ParentID != nil {
			parent = *m.ParentID
		}
		index[key{parent, strings.ToLower(m.Name)}] = m.ID
	}

	created := 0
	var walk func(parent *uuid.UUID, nodes []MenuSeed) error
	walk = func(parent *uuid.UUID, nodes []MenuSeed) error {
		for _, n := range nodes {
			name := strings.TrimSpace(n.Name)
			var pid uuid.UUID
			if parent != nil {
				pid = *parent
			}
			id, ok := index[key{pid, strings.ToLower(name)}]
			if !ok {
				m, err := t.MenuOptions.CreateMenuOption(ctx, usecase.MenuOptionInput{Name: name, ParentID: parent})
				if err != nil {
					return err
				}
				id = m.ID
				index[key{pid, strings.ToLower(name)}] = id
				created++
			}
			if err := walk(&id, n.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(nil, s.Nodes); err != nil {
		return created, err
	}
	return created, nil
}

// menuPaths maps "Root/Child" paths to menu option ids. Options on a cycle
// or under a missing parent have no path.
func menuPaths(opts []permission.MenuOption) map[string]uuid.UUID {
	byID := make(map[uuid.UUID]permission.MenuOption, len(opts))
	for _, o := range opts {
		byID[o.ID] = o
	}

	out := make(map[string]uuid.UUID, len(opts))
	for _, o := range opts {
		segs := []string{o.Name}
		cur := o
		ok := true
		for depth := 0; cur.ParentID != nil; depth++ {
			parent, found := byID[*cur.ParentID]
			if !found || depth >= permission.MaxTreeDepth {
				ok = false
				break
			}
			segs = append(segs, parent.Name)
			cur = parent
		}
		if !ok {
			continue
		}
		for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
			segs[i], segs[j] = segs[j], segs[i]
		}
		out[strings.Join(segs, "/")] = o.ID
	}
	return out
}
