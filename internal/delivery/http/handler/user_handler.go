package handler

import (
	"skill-registry/internal/delivery/http/dto"
	"skill-registry/internal/pkg/response"
	"skill-registry/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type UserHandler struct {
	uc     usecase.UserUsecase
	levels usecase.AccessLevelUsecase
}

type setAccessLevelRequest struct {
	AccessLevelID *string `json:"accessLevelId"`
}

func NewUserHandler(uc usecase.UserUsecase, levels usecase.AccessLevelUsecase) *UserHandler {
	return &UserHandler{uc: uc, levels: levels}
}

func (h *UserHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Get("/me", h.GetMe)
	r.Get("/me/permissions", h.GetMyPermissions)
	r.Put("/:id/access-level", h.SetAccessLevel)
}

func (h *UserHandler) GetMe(c fiber.Ctx) error {
	userID, err := actingUser(c)
	if err != nil {
		return err
	}

	usr, err := h.uc.GetMe(c.Context(), userID)
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewUserResponse(usr))
}

func (h *UserHandler) GetMyPermissions(c fiber.Ctx) error {
	userID, err := actingUser(c)
	if err != nil {
		return err
	}

	set, err := h.levels.ResolvePermissions(c.Context(), userID)
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewPermissionSetResponse(set))
}

// SetAccessLevel assigns a level to a user; a null or empty id clears it.
func (h *UserHandler) SetAccessLevel(c fiber.Ctx) error {
	if _, err := actingUser(c); err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req setAccessLevelRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	var fe fieldErrors
	levelID := fe.optionalUUID("accessLevelId", req.AccessLevelID)
	if err := fe.err(); err != nil {
		return err
	}

	usr, err := h.uc.SetAccessLevel(c.Context(), id, levelID)
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, "Access level updated", dto.NewUserResponse(usr))
}
