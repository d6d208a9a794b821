package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"skill-registry/internal/domain/permission"
	"skill-registry/internal/repository"

	"github.com/google/uuid"
)

type MenuOptionInput struct {
	Name     string
	ParentID *uuid.UUID
}

type MenuOptionUsecase interface {
	ListMenuOptions(ctx context.Context) ([]permission.MenuOption, error)
	GetMenuOption(ctx context.Context, id uuid.UUID) (permission.MenuOption, error)
	CreateMenuOption(ctx context.Context, in MenuOptionInput) (permission.MenuOption, error)
	UpdateMenuOption(ctx context.Context, id uuid.UUID, in MenuOptionInput) (permission.MenuOption, error)
	DeleteMenuOption(ctx context.Context, id uuid.UUID) error
	MenuTree(ctx context.Context) ([]*permission.MenuNode, error)
}

type MenuOptions struct {
	repo   repository.MenuOptionRepository
	levels repository.AccessLevelRepository
}

func NewMenuOptionUsecase(repo repository.MenuOptionRepository, levels repository.AccessLevelRepository) *MenuOptions {
	return &MenuOptions{repo: repo, levels: levels}
}

func (u *MenuOptions) ListMenuOptions(ctx context.Context) ([]permission.MenuOption, error) {
	items, err := u.repo.List(ctx)
	if err != nil {
		return nil, internalError(err)
	}
	return items, nil
}

func (u *MenuOptions) GetMenuOption(ctx context.Context, id uuid.UUID) (permission.MenuOption, error) {
	m, err := u.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return permission.MenuOption{}, ErrMenuOptionNotFound
		}
		return permission.MenuOption{}, internalError(err)
	}
	return m, nil
}

func (u *MenuOptions) CreateMenuOption(ctx context.Context, in MenuOptionInput) (permission.MenuOption, error) {
	name, err := u.validate(ctx, in)
	if err != nil {
		return permission.MenuOption{}, err
	}

	now := time.Now().UTC()
	created, err := u.repo.Create(ctx, permission.MenuOption{
		ID:        uuid.New(),
		Name:      name,
		ParentID:  in.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return permission.MenuOption{}, internalError(err)
	}
	return created, nil
}

func (u *MenuOptions) UpdateMenuOption(ctx context.Context, id uuid.UUID, in MenuOptionInput) (permission.MenuOption, error) {
	current, err := u.GetMenuOption(ctx, id)
	if err != nil {
		return permission.MenuOption{}, err
	}

	if in.ParentID != nil && *in.ParentID == id {
		return permission.MenuOption{}, ErrCycle
	}
	name, err := u.validate(ctx, in)
	if err != nil {
		return permission.MenuOption{}, err
	}
	if in.ParentID != nil {
		if err := u.checkCycle(ctx, id, *in.ParentID); err != nil {
			return permission.MenuOption{}, err
		}
	}

	current.Name = name
	current.ParentID = in.ParentID
	current.UpdatedAt = time.Now().UTC()

	updated, err := u.repo.Update(ctx, current)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return permission.MenuOption{}, ErrMenuOptionNotFound
		}
		return permission.MenuOption{}, internalError(err)
	}
	return updated, nil
}

// DeleteMenuOption refuses to remove a node that still has children or is
// granted by an access level.
func (u *MenuOptions) DeleteMenuOption(ctx context.Context, id uuid.UUID) error {
	if _, err := u.GetMenuOption(ctx, id); err != nil {
		return err
	}

	children, err := u.repo.CountChildren(ctx, id)
	if err != nil {
		return internalError(err)
	}
	if children > 0 {
		return ErrMenuOptionInUse
	}

	refs, err := u.levels.CountByMenuOption(ctx, id)
	if err != nil {
		return internalError(err)
	}
	if refs > 0 {
		return ErrMenuOptionInUse
	}

	deleted, err := u.repo.Delete(ctx, id)
	if err != nil {
		return internalError(err)
	}
	if !deleted {
		return ErrMenuOptionNotFound
	}
	return nil
}

func (u *MenuOptions) MenuTree(ctx context.Context) ([]*permission.MenuNode, error) {
	items, err := u.repo.List(ctx)
	if err != nil {
		return nil, internalError(err)
	}
	return buildMenuTree(items), nil
}

func (u *MenuOptions) validate(ctx context.Context, in MenuOptionInput) (string, error) {
	name := strings.TrimSpace(in.Name)
	verr := &ValidationError{}
	if name == "" {
		verr.Add("name", "is required")
	}
	if in.ParentID != nil {
		if _, err := u.repo.GetByID(ctx, *in.ParentID); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return "", internalError(err)
			}
			verr.Add("parentId", "menu option does not exist")
		}
	}
	return name, verr.Err()
}

// checkCycle walks up from parentID and fails if the chain reaches id, revisits
// a node or grows past MaxTreeDepth. A missing ancestor ends the chain.
func (u *MenuOptions) checkCycle(ctx context.Context, id, parentID uuid.UUID) error {
	visited := make(map[uuid.UUID]struct{}, 8)
	cur := parentID
	for depth := 0; depth < permission.MaxTreeDepth; depth++ {
		if cur == id {
			return ErrCycle
		}
		if _, seen := visited[cur]; seen {
			return ErrCycle
		}
		visited[cur] = struct{}{}

		m, err := u.repo.GetByID(ctx, cur)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return internalError(err)
		}
		if m.ParentID == nil {
			return nil
		}
		cur = *m.ParentID
	}
	return ErrCycle
}

// buildMenuTree assembles the forest described by the parent links. Nodes whose
// parent is unknown become roots. A link that would close a loop is dropped and
// its node becomes a root, so the result is always a forest. Siblings are
// ordered by name.
func buildMenuTree(items []permission.MenuOption) []*permission.MenuNode {
	sorted := make([]permission.MenuOption, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Name == sorted[j].Name {
			return sorted[i].ID.String() < sorted[j].ID.String()
		}
		return sorted[i].Name < sorted[j].Name
	})

	nodes := make(map[uuid.UUID]*permission.MenuNode, len(sorted))
	parent := make(map[uuid.UUID]*uuid.UUID, len(sorted))
	for _, m := range sorted {
		nodes[m.ID] = &permission.MenuNode{ID: m.ID, Name: m.Name, ParentID: m.ParentID}
		parent[m.ID] = m.ParentID
	}

	reaches := func(from, target uuid.UUID) bool {
		cur := from
		for depth := 0; depth <= permission.MaxTreeDepth; depth++ {
			if cur == target {
				return true
			}
			p := parent[cur]
			if p == nil {
				return false
			}
			if _, ok := nodes[*p]; !ok {
				return false
			}
			cur = *p
		}
		return true
	}

	roots := make([]*permission.MenuNode, 0)
	for _, m := range sorted {
		n := nodes[m.ID]
		p := parent[m.ID]
		if p != nil {
			if pn, ok := nodes[*p]; ok && !reaches(*p, m.ID) {
				pn.Children = append(pn.Children, n)
				continue
			}
		}
		parent[m.ID] = nil
		n.ParentID = nil
		roots = append(roots, n)
	}
	return roots
}
