package handler

import (
	"skill-registry/internal/delivery/http/dto"
	"skill-registry/internal/pkg/response"
	"skill-registry/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type EvaluationHandler struct {
	uc usecase.EvaluationUsecase
}

// evaluationRequest records a new fact, or changes the level of an existing
// record when id is set.
type evaluationRequest struct {
	ID        *string `json:"id"`
	ProfileID string  `json:"profileId"`
	SkillID   string  `json:"skillId"`
	Level     int     `json:"level"`
}

func NewEvaluationHandler(uc usecase.EvaluationUsecase) *EvaluationHandler {
	return &EvaluationHandler{uc: uc}
}

func (h *EvaluationHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	grp := r.Group("/evaluations")
	grp.Get("/", h.List)
	grp.Post("/", h.Record)
	grp.Get("/:id", h.Get)
}

func (h *EvaluationHandler) List(c fiber.Ctx) error {
	items, err := h.uc.ListEvaluations(c.Context())
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, response.NewList(dto.NewEvaluationResponses(items)))
}

func (h *EvaluationHandler) Get(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ev, err := h.uc.GetEvaluation(c.Context(), id)
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewEvaluationResponse(ev))
}

func (h *EvaluationHandler) Record(c fiber.Ctx) error {
	evaluatorID, err := actingUser(c)
	if err != nil {
		return err
	}

	var req evaluationRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	var fe fieldErrors
	if id := fe.optionalUUID("id", req.ID); id != nil {
		if err := fe.err(); err != nil {
			return err
		}
		ev, err := h.uc.UpdateEvaluation(c.Context(), *id, req.Level)
		if err != nil {
			return mapUsecaseError(err)
		}
		return response.Success(c, fiber.StatusOK, "Evaluation updated", dto.NewEvaluationResponse(ev))
	}

	profileID := fe.uuid("profileId", req.ProfileID)
	skillID := fe.uuid("skillId", req.SkillID)
	if err := fe.err(); err != nil {
		return err
	}

	ev, err := h.uc.RecordEvaluation(c.Context(), usecase.EvaluationInput{
		ProfileID:   profileID,
		SkillID:     skillID,
		EvaluatorID: evaluatorID,
		Level:       req.Level,
	})
	if err != nil {
		return mapUsecaseError(err)
	}

	status := fiber.StatusOK
	if ev.Version == 1 && ev.ID != uuid.Nil {
		status = fiber.StatusCreated
	}
	return response.Success(c, status, "Evaluation recorded", dto.NewEvaluationResponse(ev))
}
