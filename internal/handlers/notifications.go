package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arnold/productivityhub-api/internal/middleware"
	"github.com/arnold/productivityhub-api/internal/models"
)

// GetNotifications returns a page of the caller's notifications, newest first.
func (h *Handler) GetNotifications(c *fiber.Ctx) error {
	owner, ok := requestOwner(c, c.Query("userId"))
	if !ok {
		return unauthorized(c)
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}
	offset := (page - 1) * limit

	db := h.db.WithContext(c.UserContext())
	notifications := []models.Notification{}
	if err := db.Where("user_id = ?", owner).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&notifications).Error; err != nil {
		h.log.Error("list notifications", zap.String("user_id", owner), zap.Error(err))
		return internalError(c, "Failed to fetch notifications")
	}

	var total, unread int64
	if err := db.Model(&models.Notification{}).Where("user_id = ?", owner).Count(&total).Error; err != nil {
		h.log.Error("count notifications", zap.String("user_id", owner), zap.Error(err))
		return internalError(c, "Failed to fetch notifications")
	}
	if err := db.Model(&models.Notification{}).Where("user_id = ? AND read = ?", owner, false).Count(&unread).Error; err != nil {
		h.log.Error("count unread notifications", zap.String("user_id", owner), zap.Error(err))
		return internalError(c, "Failed to fetch notifications")
	}

	return c.JSON(fiber.Map{
		"notifications": notifications,
		"total":         total,
		"unread":        unread,
		"page":          page,
		"limit":         limit,
	})
}

func (h *Handler) MarkNotificationRead(c *fiber.Ctx) error {
	owner, ok := requestOwner(c, c.Query("userId"))
	if !ok {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid notification ID")
	}

	result := h.db.WithContext(c.UserContext()).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, owner).
		Update("read", true)
	if result.Error != nil {
		h.log.Error("mark notification read", zap.String("notification_id", id.String()), zap.Error(result.Error))
		return internalError(c, "Failed to update notification")
	}
	if result.RowsAffected == 0 {
		return notFound(c, "Notification")
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *Handler) MarkAllRead(c *fiber.Ctx) error {
	owner, ok := requestOwner(c, c.Query("userId"))
	if !ok {
		return unauthorized(c)
	}

	result := h.db.WithContext(c.UserContext()).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", owner, false).
		Update("read", true)
	if result.Error != nil {
		return internalError(c, "Failed to update notifications")
	}

	return c.JSON(fiber.Map{"success": true, "updated": result.RowsAffected})
}

// RegisterDeviceToken saves the FCM token used for session reminders.
func (h *Handler) RegisterDeviceToken(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return badRequest(c, "Token is required")
	}

	if err := h.db.WithContext(c.UserContext()).Model(&models.User{}).Where("id = ?", userID).Update("fcm_token", req.Token).Error; err != nil {
		h.log.Error("save device token", zap.String("user_id", userID.String()), zap.Error(err))
		return internalError(c, "Failed to save token")
	}

	return c.JSON(fiber.Map{"success": true})
}
