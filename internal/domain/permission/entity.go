package permission

import (
	"time"

	"github.com/google/uuid"
)

// MaxTreeDepth bounds every walk up a parent chain.
const MaxTreeDepth = 64

type MenuOption struct {
	ID        uuid.UUID
	Name      string
	ParentID  *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

type AccessLevel struct {
	ID            uuid.UUID
	Name          string
	MenuOptionIDs []uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type MenuNode struct {
	ID       uuid.UUID
	Name     string
	ParentID *uuid.UUID
	Children []*MenuNode
}
