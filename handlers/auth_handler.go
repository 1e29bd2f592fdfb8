package handlers

import (
	"github.com/cryptodash/coin-backend/middleware"
	"github.com/cryptodash/coin-backend/models"
	"github.com/cryptodash/coin-backend/services"
	"github.com/cryptodash/coin-backend/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	users  *services.UserService
	tokens *middleware.TokenIssuer
}

func NewAuthHandler(users *services.UserService, tokens *middleware.TokenIssuer) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

// Signup registers a new account and returns a signed token.
// A duplicate email responds 404, which the existing client expects.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req models.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "All fields are required",
		})
	}

	if req.Password != req.ConfirmPassword {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Passwords do not match",
		})
	}

	user, err := h.users.Signup(c.Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		if shared.CategoryOf(err) == shared.ErrorCategoryConflict {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "User already registered",
			})
		}
		logrus.WithError(err).Error("Signup failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal server error",
		})
	}

	token, err := h.tokens.GenerateToken(user)
	if err != nil {
		logrus.WithError(err).Error("Token generation failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal server error",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(models.AuthResponse{
		Message: "User registered successfully",
		User:    user.Public(),
		Token:   token,
	})
}

// Login verifies credentials and returns a signed token
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Email and password are required",
		})
	}

	user, err := h.users.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		if shared.CategoryOf(err) == shared.ErrorCategoryAuthentication {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid email or password",
			})
		}
		logrus.WithError(err).Error("Login failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal server error",
		})
	}

	token, err := h.tokens.GenerateToken(user)
	if err != nil {
		logrus.WithError(err).Error("Token generation failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal server error",
		})
	}

	return c.JSON(models.AuthResponse{
		Message: "Login successful",
		User:    user.Public(),
		Token:   token,
	})
}
