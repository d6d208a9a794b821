package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"skill-registry/internal/domain/permission"
	"skill-registry/internal/domain/user"
	"skill-registry/internal/repository"

	"github.com/google/uuid"
)

type AccessLevelInput struct {
	// ID selects the level to replace. Unknown or nil ids create a new level.
	ID            *uuid.UUID
	Name          string
	MenuOptionIDs []uuid.UUID
}

// PermissionSet is what a user may see: the granted menu options plus the
// ancestors needed to place them in the tree.
type PermissionSet struct {
	AccessLevel   *permission.AccessLevel
	MenuOptionIDs []uuid.UUID
	Tree          []*permission.MenuNode
}

type AccessLevelUsecase interface {
	ListAccessLevels(ctx context.Context) ([]permission.AccessLevel, error)
	GetAccessLevel(ctx context.Context, id uuid.UUID) (permission.AccessLevel, error)
	UpsertAccessLevel(ctx context.Context, in AccessLevelInput) (permission.AccessLevel, bool, error)
	DeleteAccessLevel(ctx context.Context, id uuid.UUID) error
	ReplaceMenuOptions(ctx context.Context, id uuid.UUID, menuOptionIDs []uuid.UUID) (permission.AccessLevel, error)
	ResolvePermissions(ctx context.Context, userID uuid.UUID) (PermissionSet, error)
}

type AccessLevels struct {
	repo  repository.AccessLevelRepository
	menus repository.MenuOptionRepository
	users user.Repository
}

func NewAccessLevelUsecase(repo repository.AccessLevelRepository, menus repository.MenuOptionRepository, users user.Repository) *AccessLevels {
	return &AccessLevels{repo: repo, menus: menus, users: users}
}

func (u *AccessLevels) ListAccessLevels(ctx context.Context) ([]permission.AccessLevel, error) {
	items, err := u.repo.List(ctx)
	if err != nil {
		return nil, internalError(err)
	}
	return items, nil
}

func (u *AccessLevels) GetAccessLevel(ctx context.Context, id uuid.UUID) (permission.AccessLevel, error) {
	a, err := u.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return permission.AccessLevel{}, ErrAccessLevelNotFound
		}
		return permission.AccessLevel{}, internalError(err)
	}
	return a, nil
}

// UpsertAccessLevel replaces the level named by in.ID when it exists and
// creates one otherwise. created reports which path was taken.
func (u *AccessLevels) UpsertAccessLevel(ctx context.Context, in AccessLevelInput) (permission.AccessLevel, bool, error) {
	name := strings.TrimSpace(in.Name)
	verr := &ValidationError{}
	if name == "" {
		verr.Add("name", "is required")
	}
	ids, err := u.checkMenuOptions(ctx, in.MenuOptionIDs, verr)
	if err != nil {
		return permission.AccessLevel{}, false, err
	}
	if err := verr.Err(); err != nil {
		return permission.AccessLevel{}, false, err
	}

	now := time.Now().UTC()
	if in.ID != nil {
		existing, err := u.repo.GetByID(ctx, *in.ID)
		switch {
		case err == nil:
			existing.Name = name
			existing.MenuOptionIDs = ids
			existing.UpdatedAt = now
			updated, err := u.repo.Update(ctx, existing)
			if err != nil {
				return permission.AccessLevel{}, false, mapAccessLevelWriteError(err)
			}
			return updated, false, nil
		case !errors.Is(err, repository.ErrNotFound):
			return permission.AccessLevel{}, false, internalError(err)
		}
	}

	id := uuid.New()
	if in.ID != nil && *in.ID != uuid.Nil {
		id = *in.ID
	}
	created, err := u.repo.Create(ctx, permission.AccessLevel{
		ID:            id,
		Name:          name,
		MenuOptionIDs: ids,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return permission.AccessLevel{}, false, mapAccessLevelWriteError(err)
	}
	return created, true, nil
}

// DeleteAccessLevel clears the level from every user before removing it, so a
// failed call can simply be repeated.
func (u *AccessLevels) DeleteAccessLevel(ctx context.Context, id uuid.UUID) error {
	if _, err := u.GetAccessLevel(ctx, id); err != nil {
		return err
	}
	if _, err := u.users.ClearAccessLevel(ctx, id); err != nil {
		return internalError(err)
	}
	deleted, err := u.repo.Delete(ctx, id)
	if err != nil {
		return internalError(err)
	}
	if !deleted {
		return ErrAccessLevelNotFound
	}
	return nil
}

func (u *AccessLevels) ReplaceMenuOptions(ctx context.Context, id uuid.UUID, menuOptionIDs []uuid.UUID) (permission.AccessLevel, error) {
	verr := &ValidationError{}
	ids, err := u.checkMenuOptions(ctx, menuOptionIDs, verr)
	if err != nil {
		return permission.AccessLevel{}, err
	}
	if err := verr.Err(); err != nil {
		return permission.AccessLevel{}, err
	}

	updated, err := u.repo.ReplaceMenuOptions(ctx, id, ids)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return permission.AccessLevel{}, ErrAccessLevelNotFound
		}
		return permission.AccessLevel{}, internalError(err)
	}
	return updated, nil
}

// ResolvePermissions returns an empty set for users without a level, including
// users whose level was removed underneath them.
func (u *AccessLevels) ResolvePermissions(ctx context.Context, userID uuid.UUID) (PermissionSet, error) {
	usr, err := u.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return PermissionSet{}, ErrUserNotFound
		}
		return PermissionSet{}, internalError(err)
	}

	empty := PermissionSet{MenuOptionIDs: []uuid.UUID{}, Tree: []*permission.MenuNode{}}
	if usr.AccessLevelID == nil {
		return empty, nil
	}
	level, err := u.repo.GetByID(ctx, *usr.AccessLevelID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return empty, nil
		}
		return PermissionSet{}, internalError(err)
	}

	all, err := u.menus.List(ctx)
	if err != nil {
		return PermissionSet{}, internalError(err)
	}
	byID := make(map[uuid.UUID]permission.MenuOption, len(all))
	for _, m := range all {
		byID[m.ID] = m
	}

	keep := make(map[uuid.UUID]struct{}, len(level.MenuOptionIDs))
	granted := make([]uuid.UUID, 0, len(level.MenuOptionIDs))
	for _, id := range level.MenuOptionIDs {
		if _, ok := byID[id]; !ok {
			continue
		}
		granted = append(granted, id)
		cur := id
		for depth := 0; depth < permission.MaxTreeDepth; depth++ {
			if _, seen := keep[cur]; seen {
				break
			}
			keep[cur] = struct{}{}
			m := byID[cur]
			if m.ParentID == nil {
				break
			}
			if _, ok := byID[*m.ParentID]; !ok {
				break
			}
			cur = *m.ParentID
		}
	}

	subset := make([]permission.MenuOption, 0, len(keep))
	for id := range keep {
		subset = append(subset, byID[id])
	}

	return PermissionSet{
		AccessLevel:   &level,
		MenuOptionIDs: granted,
		Tree:          buildMenuTree(subset),
	}, nil
}

// checkMenuOptions collapses duplicates keeping first-seen order and records
// unknown ids on verr.
func (u *AccessLevels) checkMenuOptions(ctx context.Context, ids []uuid.UUID, verr *ValidationError) ([]uuid.UUID, error) {
	out := dedupeIDs(ids)
	if len(out) == 0 {
		return out, nil
	}
	missing, err := u.menus.MissingIDs(ctx, out)
	if err != nil {
		return nil, internalError(err)
	}
	for _, id := range missing {
		verr.Add("menuOptionIds", "menu option "+id.String()+" does not exist")
	}
	return out, nil
}

func mapAccessLevelWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return ErrNameTaken
	case errors.Is(err, repository.ErrNotFound):
		return ErrAccessLevelNotFound
	default:
		return internalError(err)
	}
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
