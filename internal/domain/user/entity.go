package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID               uuid.UUID
	Email            string
	PasswordHash     string
	AccessLevelID    *uuid.UUID
	ExternalPeopleID *int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
