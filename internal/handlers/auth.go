package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/arnold/productivityhub-api/internal/middleware"
	"github.com/arnold/productivityhub-api/internal/models"
)

func (h *Handler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	var existing models.User
	err := h.db.WithContext(c.UserContext()).Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Email already registered",
		})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		h.log.Error("lookup user", zap.Error(err))
		return internalError(c, "Failed to create user")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return internalError(c, "Failed to hash password")
	}

	user := models.User{
		Email:    req.Email,
		Password: string(hashed),
		Name:     req.Name,
	}
	if err := h.db.WithContext(c.UserContext()).Create(&user).Error; err != nil {
		h.log.Error("create user", zap.Error(err))
		return internalError(c, "Failed to create user")
	}

	token, err := h.auth.GenerateToken(user.ID, user.Email)
	if err != nil {
		return internalError(c, "Failed to generate token")
	}

	h.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return c.Status(fiber.StatusCreated).JSON(models.AuthResponse{
		Token: token,
		User:  user,
	})
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	var user models.User
	if err := h.db.WithContext(c.UserContext()).Where("email = ?", req.Email).First(&user).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	token, err := h.auth.GenerateToken(user.ID, user.Email)
	if err != nil {
		return internalError(c, "Failed to generate token")
	}

	return c.JSON(models.AuthResponse{
		Token: token,
		User:  user,
	})
}

func (h *Handler) GetMe(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	db := h.db.WithContext(c.UserContext())
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return notFound(c, "User")
	}

	var habits, sessions int64
	if err := db.Model(&models.Habit{}).Where("user_id = ?", userID.String()).Count(&habits).Error; err != nil {
		h.log.Error("count habits", zap.String("user_id", userID.String()), zap.Error(err))
		return internalError(c, "Failed to load profile")
	}
	if err := db.Model(&models.StudySession{}).Where("user_id = ?", userID.String()).Count(&sessions).Error; err != nil {
		h.log.Error("count sessions", zap.String("user_id", userID.String()), zap.Error(err))
		return internalError(c, "Failed to load profile")
	}

	return c.JSON(fiber.Map{
		"id":         user.ID,
		"email":      user.Email,
		"name":       user.Name,
		"habits":     habits,
		"sessions":   sessions,
		"pushTokens": user.FCMToken != "",
		"createdAt":  user.CreatedAt,
		"updatedAt":  user.UpdatedAt,
	})
}
