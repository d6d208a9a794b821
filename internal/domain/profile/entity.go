package profile

import (
	"time"

	"github.com/google/uuid"
)

type Experience struct {
	ID          uuid.UUID
	Title       string
	Company     string
	Location    string
	From        time.Time
	To          *time.Time
	Current     bool
	Description string
}

type Education struct {
	ID           uuid.UUID
	Title        string
	School       string
	Degree       string
	FieldOfStudy string
	From         time.Time
	To           *time.Time
	Current      bool
	Description  string
}

type Social struct {
	Title string
	URL   string
}

type SkillDeclaration struct {
	SkillID uuid.UUID
	URL     string
}

type Profile struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	FirstName      string
	LastName       string
	Occupation     string
	Picture        string
	Company        string
	Location       string
	Active         bool
	GithubUsername string
	Experience     []Experience
	Education      []Education
	Social         []Social
	Skills         []SkillDeclaration

	// DeletingAt is set when a cascade delete has started and not yet finished.
	DeletingAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Profile) Deleting() bool {
	return p.DeletingAt != nil
}
