package handler

import (
	"skill-registry/internal/delivery/http/dto"
	"skill-registry/internal/pkg/response"
	"skill-registry/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type MenuOptionHandler struct {
	uc usecase.MenuOptionUsecase
}

type menuOptionRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
}

func NewMenuOptionHandler(uc usecase.MenuOptionUsecase) *MenuOptionHandler {
	return &MenuOptionHandler{uc: uc}
}

func (h *MenuOptionHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	grp := r.Group("/menu-options")
	grp.Get("/", h.List)
	grp.Post("/", h.Create)
	grp.Get("/tree", h.Tree)
	grp.Get("/:id", h.Get)
	grp.Put("/:id", h.Update)
	grp.Delete("/:id", h.Delete)
}

func (h *MenuOptionHandler) List(c fiber.Ctx) error {
	items, err := h.uc.ListMenuOptions(c.Context())
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, response.NewList(dto.NewMenuOptionResponses(items)))
}

func (h *MenuOptionHandler) Tree(c fiber.Ctx) error {
	nodes, err := h.uc.MenuTree(c.Context())
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewMenuTreeResponse(nodes))
}

func (h *MenuOptionHandler) Get(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	m, err := h.uc.GetMenuOption(c.Context(), id)
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewMenuOptionResponse(m))
}

func (h *MenuOptionHandler) Create(c fiber.Ctx) error {
	in, err := h.decode(c)
	if err != nil {
		return err
	}
	m, err := h.uc.CreateMenuOption(c.Context(), in)
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Created(c, "Menu option created", dto.NewMenuOptionResponse(m))
}

func (h *MenuOptionHandler) Update(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	in, err := h.decode(c)
	if err != nil {
		return err
	}
	m, err := h.uc.UpdateMenuOption(c.Context(), id, in)
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, "Menu option updated", dto.NewMenuOptionResponse(m))
}

func (h *MenuOptionHandler) Delete(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.uc.DeleteMenuOption(c.Context(), id); err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, "Menu option deleted", nil)
}

func (h *MenuOptionHandler) decode(c fiber.Ctx) (usecase.MenuOptionInput, error) {
	var req menuOptionRequest
	if err := bindBody(c, &req); err != nil {
		return usecase.MenuOptionInput{}, err
	}
	var fe fieldErrors
	parent := fe.optionalUUID("parentId", req.ParentID)
	if err := fe.err(); err != nil {
		return usecase.MenuOptionInput{}, err
	}
	return usecase.MenuOptionInput{Name: req.Name, ParentID: parent}, nil
}
