package handler

import (
	"errors"
	"log"
	"strconv"

	"skill-registry/internal/delivery/http/dto"
	"skill-registry/internal/delivery/http/middleware"
	"skill-registry/internal/domain/profile"
	"skill-registry/internal/pkg/response"
	"skill-registry/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type ProfileHandler struct {
	uc          usecase.ProfileUsecase
	evaluations usecase.EvaluationUsecase
	cascade     usecase.CascadeUsecase
	github      usecase.GithubUsecase
	logger      *log.Logger
}

type experienceRequest struct {
	ID          *string `json:"id"`
	Title       string  `json:"title"`
	Company     string  `json:"company"`
	Location    string  `json:"location"`
	From        string  `json:"from"`
	To          *string `json:"to"`
	Current     bool    `json:"current"`
	Description string  `json:"description"`
}

type educationRequest struct {
	ID           *string `json:"id"`
	Title        string  `json:"title"`
	School       string  `json:"school"`
	Degree       string  `json:"degree"`
	FieldOfStudy string  `json:"fieldOfStudy"`
	From         string  `json:"from"`
	To           *string `json:"to"`
	Current      bool    `json:"current"`
	Description  string  `json:"description"`
}

type socialRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type skillDeclarationRequest struct {
	SkillID string `json:"skillId"`
	URL     string `json:"url"`
}

type upsertProfileRequest struct {
	FirstName      string                    `json:"firstName"`
	LastName       string                    `json:"lastName"`
	Occupation     string                    `json:"occupation"`
	Picture        string                    `json:"picture"`
	Company        string                    `json:"company"`
	Location       string                    `json:"location"`
	Active         *bool                     `json:"active"`
	GithubUsername string                    `json:"githubUsername"`
	Experience     []experienceRequest       `json:"experience"`
	Education      []educationRequest        `json:"education"`
	Social         []socialRequest           `json:"social"`
	Skills         []skillDeclarationRequest `json:"skills"`
}

type cascadeFailure struct {
	Step     string                `json:"step"`
	Attempts int                   `json:"attempts"`
	Report   usecase.CascadeReport `json:"report"`
}

func NewProfileHandler(uc usecase.ProfileUsecase, evaluations usecase.EvaluationUsecase, cascade usecase.CascadeUsecase, github usecase.GithubUsecase, logger *log.Logger) *ProfileHandler {
	return &ProfileHandler{uc: uc, evaluations: evaluations, cascade: cascade, github: github, logger: logger}
}

// RegisterRoutes registers static segments before "/:id" so they are not
// captured as ids.
func (h *ProfileHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	grp := r.Group("/profiles")
	grp.Get("/", h.List)
	grp.Post("/", h.Upsert)
	grp.Get("/me", h.GetMine)
	grp.Get("/user/:user_id", h.GetByUser)
	grp.Get("/github/:username", h.GithubRepositories)
	grp.Put("/experience", h.AddExperience)
	grp.Delete("/experience/:exp_id", h.RemoveExperience)
	grp.Put("/education", h.AddEducation)
	grp.Delete("/education/:edu_id", h.RemoveEducation)
	grp.Get("/:id", h.Get)
	grp.Get("/:id/evaluations", h.Evaluations)
	grp.Delete("/:id", h.Delete)
}

func (h *ProfileHandler) List(c fiber.Ctx) error {
	items, err := h.uc.ListProfiles(c.Context())
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, response.NewList(dto.NewProfileResponses(items)))
}

func (h *ProfileHandler) Get(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.uc.GetProfile(c.Context(), id)
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewProfileResponse(p))
}

func (h *ProfileHandler) GetMine(c fiber.Ctx) error {
	userID, err := actingUser(c)
	if err != nil {
		return err
	}
	p, err := h.uc.GetProfileByUser(c.Context(), userID)
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewProfileResponse(p))
}

func (h *ProfileHandler) GetByUser(c fiber.Ctx) error {
	userID, err := pathID(c, "user_id")
	if err != nil {
		return err
	}
	p, err := h.uc.GetProfileByUser(c.Context(), userID)
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewProfileResponse(p))
}

// Upsert writes the acting user's profile. The four lists are replaced as a
// whole.
func (h *ProfileHandler) Upsert(c fiber.Ctx) error {
	userID, err := actingUser(c)
	if err != nil {
		return err
	}

	var req upsertProfileRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	var fe fieldErrors
	in := usecase.ProfileInput{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Occupation:     req.Occupation,
		Picture:        req.Picture,
		Company:        req.Company,
		Location:       req.Location,
		Active:         req.Active,
		GithubUsername: req.GithubUsername,
		Experience:     make([]profile.Experience, 0, len(req.Experience)),
		Education:      make([]profile.Education, 0, len(req.Education)),
		Social:         make([]profile.Social, 0, len(req.Social)),
		Skills:         make([]profile.SkillDeclaration, 0, len(req.Skills)),
	}
	for i, e := range req.Experience {
		in.Experience = append(in.Experience, e.toDomain(&fe, "experience["+strconv.Itoa(i)+"]"))
	}
	for i, e := range req.Education {
		in.Education = append(in.Education, e.toDomain(&fe, "education["+strconv.Itoa(i)+"]"))
	}
	for _, s := range req.Social {
		in.Social = append(in.Social, profile.Social{Title: s.Title, URL: s.URL})
	}
	for i, s := range req.Skills {
		id := fe.uuid("skills["+strconv.Itoa(i)+"].skillId", s.SkillID)
		in.Skills = append(in.Skills, profile.SkillDeclaration{SkillID: id, URL: s.URL})
	}
	if err := fe.err(); err != nil {
		return err
	}

	p, created, err := h.uc.UpsertProfile(c.Context(), userID, in)
	if err != nil {
		return mapUsecaseError(err)
	}
	if created {
		return response.Created(c, "Profile created", dto.NewProfileResponse(p))
	}
	return response.Success(c, fiber.StatusOK, "Profile updated", dto.NewProfileResponse(p))
}

func (h *ProfileHandler) AddExperience(c fiber.Ctx) error {
	userID, err := actingUser(c)
	if err != nil {
		return err
	}
	var req experienceRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	var fe fieldErrors
	entry := req.toDomain(&fe, "experience")
	if err := fe.err(); err != nil {
		return err
	}

	p, err := h.uc.AddExperience(c.Context(), userID, entry)
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, "Experience added", dto.NewProfileResponse(p))
}

func (h *ProfileHandler) RemoveExperience(c fiber.Ctx) error {
	userID, err := actingUser(c)
	if err != nil {
		return err
	}
	entryID, err := pathID(c, "exp_id")
	if err != nil {
		return err
	}
	p, err := h.uc.RemoveExperience(c.Context(), userID, entryID)
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, "Experience removed", dto.NewProfileResponse(p))
}

func (h *ProfileHandler) AddEducation(c fiber.Ctx) error {
	userID, err := actingUser(c)
	if err != nil {
		return err
	}
	var req educationRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	var fe fieldErrors
	entry := req.toDomain(&fe, "education")
	if err := fe.err(); err != nil {
		return err
	}

	p, err := h.uc.AddEducation(c.Context(), userID, entry)
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, "Education added", dto.NewProfileResponse(p))
}

func (h *ProfileHandler) RemoveEducation(c fiber.Ctx) error {
	userID, err := actingUser(c)
	if err != nil {
		return err
	}
	entryID, err := pathID(c, "edu_id")
	if err != nil {
		return err
	}
	p, err := h.uc.RemoveEducation(c.Context(), userID, entryID)
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, "Education removed", dto.NewProfileResponse(p))
}

func (h *ProfileHandler) Evaluations(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	report, err := h.evaluations.EvaluationsByProfile(c.Context(), id, strictQuery(c))
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewEvaluationReportResponse(report))
}

// Delete runs the cascade. A step that keeps failing is reported with its
// name so the caller knows the profile is still tombstoned.
func (h *ProfileHandler) Delete(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	report, err := h.cascade.DeleteProfile(c.Context(), id)
	if err != nil {
		var stepErr *usecase.CascadeStepError
		if errors.As(err, &stepErr) {
			if h.logger != nil {
				h.logger.Printf("[Profiles] Cascade incomplete profile=%s step=%s attempts=%d err=%v", id, stepErr.Step, stepErr.Attempts, stepErr.Err)
			}
			data := cascadeFailure{Step: stepErr.Step, Attempts: stepErr.Attempts, Report: report}
			return response.Error(c, fiber.StatusServiceUnavailable, "Profile deletion incomplete, retry later", data)
		}
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, "Profile deleted", report)
}

func (h *ProfileHandler) GithubRepositories(c fiber.Ctx) error {
	if h.github == nil {
		return middleware.NewAppError(fiber.StatusServiceUnavailable, "Github enrichment disabled", nil, nil)
	}
	repos, err := h.github.Repositories(c.Context(), c.Params("username"))
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, repos)
}

func (r experienceRequest) toDomain(fe *fieldErrors, prefix string) profile.Experience {
	e := profile.Experience{
		Title:       r.Title,
		Company:     r.Company,
		Location:    r.Location,
		From:        fe.date(prefix+".from", r.From),
		To:          fe.optionalDate(prefix+".to", r.To),
		Current:     r.Current,
		Description: r.Description,
	}
	if id := fe.optionalUUID(prefix+".id", r.ID); id != nil {
		e.ID = *id
	}
	return e
}

func (r educationRequest) toDomain(fe *fieldErrors, prefix string) profile.Education {
	e := profile.Education{
		Title:        r.Title,
		School:       r.School,
		Degree:       r.Degree,
		FieldOfStudy: r.FieldOfStudy,
		From:         fe.date(prefix+".from", r.From),
		To:           fe.optionalDate(prefix+".to", r.To),
		Current:      r.Current,
		Description:  r.Description,
	}
	if id := fe.optionalUUID(prefix+".id", r.ID); id != nil {
		e.ID = *id
	}
	return e
}
