package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arnold/productivityhub-api/internal/middleware"
	"github.com/arnold/productivityhub-api/internal/models"
)

func (h *Handler) GetSubjects(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	subjects := []models.Subject{}
	if err := h.db.WithContext(c.UserContext()).Where("user_id = ?", userID).Order("created_at DESC").Find(&subjects).Error; err != nil {
		h.log.Error("list subjects", zap.String("user_id", userID.String()), zap.Error(err))
		return internalError(c, "Failed to fetch subjects")
	}
	return c.JSON(subjects)
}

func (h *Handler) CreateSubject(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req models.CreateSubjectRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	subject := models.Subject{
		UserID:   userID,
		Name:     req.Name,
		Category: req.Category,
		Rating:   models.ClampRating(req.Rating),
		Comment:  req.Comment,
	}
	if err := h.db.WithContext(c.UserContext()).Create(&subject).Error; err != nil {
		h.log.Error("create subject", zap.String("user_id", userID.String()), zap.Error(err))
		return internalError(c, "Failed to create subject")
	}
	return c.Status(fiber.StatusCreated).JSON(subject)
}

// UpdateSubject changes the rating and comment of one of the caller's subjects.
func (h *Handler) UpdateSubject(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid subject ID")
	}

	var req models.UpdateSubjectRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	var subject models.Subject
	if err := h.db.WithContext(c.UserContext()).Where("id = ? AND user_id = ?", id, userID).First(&subject).Error; err != nil {
		return notFound(c, "Subject")
	}

	if req.Rating != nil {
		subject.Rating = models.ClampRating(*req.Rating)
	}
	if req.Comment != nil {
		subject.Comment = *req.Comment
	}
	if err := h.db.WithContext(c.UserContext()).Save(&subject).Error; err != nil {
		h.log.Error("update subject", zap.String("subject_id", id.String()), zap.Error(err))
		return internalError(c, "Failed to update subject")
	}
	return c.JSON(subject)
}

func (h *Handler) DeleteSubject(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid subject ID")
	}

	result := h.db.WithContext(c.UserContext()).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Subject{})
	if result.Error != nil {
		return internalError(c, "Failed to delete subject")
	}
	if result.RowsAffected == 0 {
		return notFound(c, "Subject")
	}
	return c.JSON(fiber.Map{"message": "Subject deleted"})
}
