package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blog-service/internal/api/dto"
	"github.com/spec-kit/blog-service/internal/service"
)

// AuthHandler exposes account endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(authResponse(result))
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(authResponse(result))
}

// Guest handles POST /api/auth/guest.
func (h *AuthHandler) Guest(c *fiber.Ctx) error {
	result, err := h.auth.Guest(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(authResponse(result))
}

func authResponse(result *service.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{Token: result.Token, Username: result.User.Username}
}
