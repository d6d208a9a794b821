package dto

import (
	"time"

	"skill-registry/internal/domain/permission"
	"skill-registry/internal/usecase"

	"github.com/google/uuid"
)

type MenuOptionResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	ParentID  *uuid.UUID `json:"parentId"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type MenuNodeResponse struct {
	ID       uuid.UUID          `json:"id"`
	Name     string             `json:"name"`
	ParentID *uuid.UUID         `json:"parentId"`
	Children []MenuNodeResponse `json:"children"`
}

type AccessLevelResponse struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name"`
	MenuOptionIDs []uuid.UUID `json:"menuOptionIds"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

type PermissionSetResponse struct {
	AccessLevel   *AccessLevelResponse `json:"accessLevel"`
	MenuOptionIDs []uuid.UUID          `json:"menuOptionIds"`
	Tree          []MenuNodeResponse   `json:"tree"`
}

func NewMenuOptionResponse(m permission.MenuOption) MenuOptionResponse {
	return MenuOptionResponse{ID: m.ID, Name: m.Name, ParentID: m.ParentID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func NewMenuOptionResponses(items []permission.MenuOption) []MenuOptionResponse {
	out := make([]MenuOptionResponse, 0, len(items))
	for _, m := range items {
		out = append(out, NewMenuOptionResponse(m))
	}
	return out
}

func NewMenuTreeResponse(nodes []*permission.MenuNode) []MenuNodeResponse {
	out := make([]MenuNodeResponse, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		out = append(out, MenuNodeResponse{
			ID:       n.ID,
			Name:     n.Name,
			ParentID: n.ParentID,
			Children: NewMenuTreeResponse(n.Children),
		})
	}
	return out
}

func NewAccessLevelResponse(a permission.AccessLevel) AccessLevelResponse {
	ids := a.MenuOptionIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return AccessLevelResponse{ID: a.ID, Name: a.Name, MenuOptionIDs: ids, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt}
}

func NewAccessLevelResponses(items []permission.AccessLevel) []AccessLevelResponse {
	out := make([]AccessLevelResponse, 0, len(items))
	for _, a := range items {
		out = append(out, NewAccessLevelResponse(a))
	}
	return out
}

func NewPermissionSetResponse(p usecase.PermissionSet) PermissionSetResponse {
	res := PermissionSetResponse{
		MenuOptionIDs: p.MenuOptionIDs,
		Tree:          NewMenuTreeResponse(p.Tree),
	}
	if res.MenuOptionIDs == nil {
		res.MenuOptionIDs = []uuid.UUID{}
	}
	if p.AccessLevel != nil {
		a := NewAccessLevelResponse(*p.AccessLevel)
		res.AccessLevel = &a
	}
	return res
}
