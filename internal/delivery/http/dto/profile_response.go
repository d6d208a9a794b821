package dto

import (
	"time"

	"skill-registry/internal/domain/profile"

	"github.com/google/uuid"
)

type ExperienceResponse struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location"`
	From        time.Time  `json:"from"`
	To          *time.Time `json:"to"`
	Current     bool       `json:"current"`
	Description string     `json:"description"`
}

type EducationResponse struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	School       string     `json:"school"`
	Degree       string     `json:"degree"`
	FieldOfStudy string     `json:"fieldOfStudy"`
	From         time.Time  `json:"from"`
	To           *time.Time `json:"to"`
	Current      bool       `json:"current"`
	Description  string     `json:"description"`
}

type SocialResponse struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type SkillDeclarationResponse struct {
	SkillID uuid.UUID `json:"skillId"`
	URL     string    `json:"url"`
}

type ProfileResponse struct {
	ID             uuid.UUID                  `json:"id"`
	UserID         uuid.UUID                  `json:"userId"`
	FirstName      string                     `json:"firstName"`
	LastName       string                     `json:"lastName"`
	Occupation     string                     `json:"occupation"`
	Picture        string                     `json:"picture"`
	Company        string                     `json:"company"`
	Location       string                     `json:"location"`
	Active         bool                       `json:"active"`
	GithubUsername string                     `json:"githubUsername"`
	Experience     []ExperienceResponse       `json:"experience"`
	Education      []EducationResponse        `json:"education"`
	Social         []SocialResponse           `json:"social"`
	Skills         []SkillDeclarationResponse `json:"skills"`
	CreatedAt      time.Time                  `json:"createdAt"`
	UpdatedAt      time.Time                  `json:"updatedAt"`
}

func NewProfileResponse(p profile.Profile) ProfileResponse {
	res := ProfileResponse{
		ID:             p.ID,
		UserID:         p.UserID,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		Occupation:     p.Occupation,
		Picture:        p.Picture,
		Company:        p.Company,
		Location:       p.Location,
		Active:         p.Active,
		GithubUsername: p.GithubUsername,
		Experience:     make([]ExperienceResponse, 0, len(p.Experience)),
		Education:      make([]EducationResponse, 0, len(p.Education)),
		Social:         make([]SocialResponse, 0, len(p.Social)),
		Skills:         make([]SkillDeclarationResponse, 0, len(p.Skills)),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	for _, e := range p.Experience {
		res.Experience = append(res.Experience, ExperienceResponse{
			ID:          e.ID,
			Title:       e.Title,
			Company:     e.Company,
			Location:    e.Location,
			From:        e.From,
			To:          e.To,
			Current:     e.Current,
			Description: e.Description,
		})
	}
	for _, e := range p.Education {
		res.Education = append(res.Education, EducationResponse{
			ID:           e.ID,
			Title:        e.Title,
			School:       e.School,
			Degree:       e.Degree,
			FieldOfStudy: e.FieldOfStudy,
			From:         e.From,
			To:           e.To,
			Current:      e.Current,
			Description:  e.Description,
		})
	}
	for _, s := range p.Social {
		res.Social = append(res.Social, SocialResponse{Title: s.Title, URL: s.URL})
	}
	for _, s := range p.Skills {
		res.Skills = append(res.Skills, SkillDeclarationResponse{SkillID: s.SkillID, URL: s.URL})
	}
	return res
}

func NewProfileResponses(items []profile.Profile) []ProfileResponse {
	out := make([]ProfileResponse, 0, len(items))
	for _, p := range items {
		out = append(out, NewProfileResponse(p))
	}
	return out
}
