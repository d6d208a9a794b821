package handler

import (
	"errors"

	"skill-registry/internal/delivery/http/dto"
	"skill-registry/internal/delivery/http/middleware"
	"skill-registry/internal/pkg/response"
	"skill-registry/internal/usecase"
	ucauth "skill-registry/internal/usecase/auth"

	"github.com/gofiber/fiber/v3"
)

type AuthHandler struct {
	uc usecase.AuthUsecase
}

type registerRequest struct {
	Email         string  `json:"email"`
	Password      string  `json:"password"`
	AccessLevelID *string `json:"accessLevelId"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func NewAuthHandler(uc usecase.AuthUsecase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

func (h *AuthHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
}

func (h *AuthHandler) Register(c fiber.Ctx) error {
	var req registerRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	var fe fieldErrors
	levelID := fe.optionalUUID("accessLevelId", req.AccessLevelID)
	if err := fe.err(); err != nil {
		return err
	}

	usr, access, refresh, err := h.uc.Register(c.Context(), ucauth.RegisterInput{
		Email:         req.Email,
		Password:      req.Password,
		AccessLevelID: levelID,
	})
	if err != nil {
		return mapUsecaseError(err)
	}

	data := dto.AuthResponse{User: dto.NewUserResponse(usr), AccessToken: access, RefreshToken: refresh}
	return response.Created(c, "User registered", data)
}

func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req loginRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	usr, access, refresh, err := h.uc.Login(c.Context(), ucauth.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return mapUsecaseError(err)
	}

	data := dto.AuthResponse{User: dto.NewUserResponse(usr), AccessToken: access, RefreshToken: refresh}
	return response.Success(c, fiber.StatusOK, response.MessageOK, data)
}

func (h *AuthHandler) Refresh(c fiber.Ctx) error {
	tok, ok := middleware.BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return middleware.NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
	}

	access, refresh, err := h.uc.Refresh(c.Context(), tok)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrRefreshTokenExpired):
			return middleware.NewAppError(fiber.StatusUnauthorized, "Refresh token expired", nil, err)
		case errors.Is(err, usecase.ErrInvalidRefreshToken):
			return middleware.NewAppError(fiber.StatusUnauthorized, "Invalid refresh token", nil, err)
		default:
			return mapUsecaseError(err)
		}
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.TokenResponse{AccessToken: access, RefreshToken: refresh})
}
