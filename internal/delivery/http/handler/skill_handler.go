package handler

import (
	"skill-registry/internal/delivery/http/dto"
	"skill-registry/internal/domain/skill"
	"skill-registry/internal/pkg/response"
	"skill-registry/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type SkillHandler struct {
	uc          usecase.SkillUsecase
	evaluations usecase.EvaluationUsecase
}

type linkReferenceRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type upsertSkillRequest struct {
	Name           string                 `json:"name"`
	Description    string                 `json:"description"`
	LinkReferences []linkReferenceRequest `json:"linkReferences"`
}

// skillLogRequest is the legacy body of PUT /skills/:id/log. The evaluator is
// always the acting user.
type skillLogRequest struct {
	ProfileID string `json:"profileId"`
	Level     int    `json:"level"`
}

func NewSkillHandler(uc usecase.SkillUsecase, evaluations usecase.EvaluationUsecase) *SkillHandler {
	return &SkillHandler{uc: uc, evaluations: evaluations}
}

func (h *SkillHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	grp := r.Group("/skills")
	grp.Get("/", h.List)
	grp.Post("/", h.Upsert)
	grp.Get("/:id", h.Get)
	grp.Delete("/:id", h.Delete)
	grp.Put("/:id/log", h.RecordLog)
	grp.Get("/:id/evaluations", h.Evaluations)
}

func (h *SkillHandler) List(c fiber.Ctx) error {
	items, err := h.uc.ListSkills(c.Context())
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, response.NewList(dto.NewSkillSummaries(items)))
}

func (h *SkillHandler) Get(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	s, err := h.uc.GetSkill(c.Context(), id)
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewSkillResponse(s))
}

func (h *SkillHandler) Upsert(c fiber.Ctx) error {
	var req upsertSkillRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	links := make([]skill.LinkReference, 0, len(req.LinkReferences))
	for _, l := range req.LinkReferences {
		links = append(links, skill.LinkReference{Name: l.Name, URL: l.URL})
	}

	s, created, err := h.uc.UpsertSkill(c.Context(), usecase.SkillInput{
		Name:           req.Name,
		Description:    req.Description,
		LinkReferences: links,
	})
	if err != nil {
		return mapUsecaseError(err)
	}
	if created {
		return response.Created(c, "Skill created", dto.NewSkillResponse(s))
	}
	return response.Success(c, fiber.StatusOK, "Skill updated", dto.NewSkillResponse(s))
}

func (h *SkillHandler) Delete(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	report, err := h.uc.DeleteSkill(c.Context(), id)
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, "Skill deleted", report)
}

func (h *SkillHandler) RecordLog(c fiber.Ctx) error {
	evaluatorID, err := actingUser(c)
	if err != nil {
		return err
	}
	skillID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req skillLogRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	var fe fieldErrors
	profileID := fe.uuid("profileId", req.ProfileID)
	if err := fe.err(); err != nil {
		return err
	}

	ev, err := h.evaluations.RecordEvaluation(c.Context(), usecase.EvaluationInput{
		ProfileID:   profileID,
		SkillID:     skillID,
		EvaluatorID: evaluatorID,
		Level:       req.Level,
	})
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, "Evaluation recorded", dto.NewEvaluationResponse(ev))
}

func (h *SkillHandler) Evaluations(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	report, err := h.evaluations.EvaluationsBySkill(c.Context(), id, strictQuery(c))
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewEvaluationReportResponse(report))
}
