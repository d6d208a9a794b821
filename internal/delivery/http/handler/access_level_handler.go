package handler

import (
	"strconv"

	"skill-registry/internal/delivery/http/dto"
	"skill-registry/internal/pkg/response"
	"skill-registry/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type AccessLevelHandler struct {
	uc usecase.AccessLevelUsecase
}

type accessLevelRequest struct {
	ID            *string  `json:"id"`
	Name          string   `json:"name"`
	MenuOptionIDs []string `json:"menuOptionIds"`
}

type menuOptionIDsRequest struct {
	MenuOptionIDs []string `json:"menuOptionIds"`
}

func NewAccessLevelHandler(uc usecase.AccessLevelUsecase) *AccessLevelHandler {
	return &AccessLevelHandler{uc: uc}
}

func (h *AccessLevelHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	grp := r.Group("/access-levels")
	grp.Get("/", h.List)
	grp.Post("/", h.Upsert)
	grp.Get("/:id", h.Get)
	grp.Delete("/:id", h.Delete)
	grp.Put("/:id/menu-options", h.ReplaceMenuOptions)
}

func (h *AccessLevelHandler) List(c fiber.Ctx) error {
	items, err := h.uc.ListAccessLevels(c.Context())
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, response.NewList(dto.NewAccessLevelResponses(items)))
}

func (h *AccessLevelHandler) Get(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.uc.GetAccessLevel(c.Context(), id)
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewAccessLevelResponse(a))
}

// Upsert replaces the level named by id when it exists and creates it
// otherwise. The status tells the two apart.
func (h *AccessLevelHandler) Upsert(c fiber.Ctx) error {
	var req accessLevelRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	var fe fieldErrors
	id := fe.optionalUUID("id", req.ID)
	ids := menuOptionIDs(&fe, req.MenuOptionIDs)
	if err := fe.err(); err != nil {
		return err
	}

	a, created, err := h.uc.UpsertAccessLevel(c.Context(), usecase.AccessLevelInput{ID: id, Name: req.Name, MenuOptionIDs: ids})
	if err != nil {
		return mapUsecaseError(err)
	}
	if created {
		return response.Created(c, "Access level created", dto.NewAccessLevelResponse(a))
	}
	return response.Success(c, fiber.StatusOK, "Access level updated", dto.NewAccessLevelResponse(a))
}

func (h *AccessLevelHandler) Delete(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.uc.DeleteAccessLevel(c.Context(), id); err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, "Access level deleted", nil)
}

func (h *AccessLevelHandler) ReplaceMenuOptions(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req menuOptionIDsRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	var fe fieldErrors
	ids := menuOptionIDs(&fe, req.MenuOptionIDs)
	if err := fe.err(); err != nil {
		return err
	}

	a, err := h.uc.ReplaceMenuOptions(c.Context(), id, ids)
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, "Menu options replaced", dto.NewAccessLevelResponse(a))
}

func menuOptionIDs(fe *fieldErrors, raw []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(raw))
	for i, s := range raw {
		id := fe.uuid("menuOptionIds["+strconv.Itoa(i)+"]", s)
		if id != uuid.Nil {
			out = append(out, id)
		}
	}
	return out
}
