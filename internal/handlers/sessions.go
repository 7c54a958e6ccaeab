package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnold/productivityhub-api/internal/events"
	"github.com/arnold/productivityhub-api/internal/models"
)

func (h *Handler) GetSessions(c *fiber.Ctx) error {
	owner, ok := requestOwner(c, c.Query("userId"))
	if !ok {
		return unauthorized(c)
	}

	sessions := []models.StudySession{}
	if err := h.db.WithContext(c.UserContext()).
		Preload("RelatedNotes").
		Where("user_id = ?", owner).
		Order("start_time ASC").
		Find(&sessions).Error; err != nil {
		h.log.Error("list sessions", zap.String("user_id", owner), zap.Error(err))
		return internalError(c, "Failed to fetch sessions")
	}
	return c.JSON(sessions)
}

// CreateSession schedules a session and links the owner's notes whose
// subject, title or tags mention the session title (or subject when untitled).
func (h *Handler) CreateSession(c *fiber.Ctx) error {
	var req struct {
		models.CreateSessionRequest
		UserID string `json:"userId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := h.validate.Struct(req.CreateSessionRequest); err != nil {
		return badRequest(c, validationMessage(err))
	}
	start, err := models.ParseStartTime(req.StartTime, h.now().Location())
	if err != nil {
		return badRequest(c, "startTime must be an ISO 8601 date-time")
	}

	owner, ok := requestOwner(c, req.UserID)
	if !ok {
		return unauthorized(c)
	}

	session := models.StudySession{
		UserID:      owner,
		Title:       req.Title,
		Description: req.Description,
		Subject:     strings.TrimSpace(req.Subject),
		StartTime:   start.UTC(),
		Duration:    60,
		Reminder:    models.DefaultReminder,
		Completed:   req.Completed,
	}
	if req.Duration != nil {
		session.Duration = *req.Duration
	}
	if req.Reminder != "" {
		session.Reminder = req.Reminder
	}

	term := session.Title
	if term == "" {
		term = session.Subject
	}
	related, err := h.findRelatedNotes(c.UserContext(), owner, term)
	if err != nil {
		h.log.Error("find related notes", zap.String("user_id", owner), zap.Error(err))
		return internalError(c, "Failed to create session")
	}
	if related == nil {
		related = []models.Note{}
	}
	session.RelatedNotes = related

	// link the existing notes through session_notes without rewriting them
	if err := h.db.WithContext(c.UserContext()).Omit("RelatedNotes.*").Create(&session).Error; err != nil {
		h.log.Error("create session", zap.String("user_id", owner), zap.Error(err))
		return internalError(c, "Failed to create session")
	}

	h.hub.Publish(owner, events.Event{Type: events.SessionCreated, Session: &session})
	return c.Status(fiber.StatusCreated).JSON(session)
}

// UpdateSession applies a partial update. Moving the start time or changing
// the reminder re-arms the reminder.
func (h *Handler) UpdateSession(c *fiber.Ctx) error {
	session, err := h.loadSession(c)
	if err != nil {
		return err
	}

	var req models.UpdateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return badRequest(c, "title cannot be empty")
		}
		session.Title = title
	}
	if req.Description != nil {
		session.Description = *req.Description
	}
	if req.Subject != nil {
		session.Subject = strings.TrimSpace(*req.Subject)
	}
	if req.StartTime != nil {
		start, err := models.ParseStartTime(*req.StartTime, h.now().Location())
		if err != nil {
			return badRequest(c, "startTime must be an ISO 8601 date-time")
		}
		if !start.Equal(session.StartTime) {
			session.StartTime = start.UTC()
			session.Reminded = false
		}
	}
	if req.Duration != nil {
		session.Duration = *req.Duration
	}
	if req.Reminder != nil && *req.Reminder != session.Reminder {
		session.Reminder = *req.Reminder
		session.Reminded = false
	}
	if req.Completed != nil {
		session.Completed = *req.Completed
	}

	if err := h.db.WithContext(c.UserContext()).Omit(clause.Associations).Save(&session).Error; err != nil {
		h.log.Error("update session", zap.String("session_id", session.ID.String()), zap.Error(err))
		return internalError(c, "Could not update session")
	}

	h.hub.Publish(session.UserID, events.Event{Type: events.SessionUpdated, Session: &session})
	return c.JSON(session)
}

func (h *Handler) DeleteSession(c *fiber.Ctx) error {
	session, err := h.loadSession(c)
	if err != nil {
		return err
	}

	err = h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM session_notes WHERE study_session_id = ?", session.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.StudySession{}, "id = ?", session.ID).Error
	})
	if err != nil {
		h.log.Error("delete session", zap.String("session_id", session.ID.String()), zap.Error(err))
		return internalError(c, "Could not delete session")
	}

	h.hub.Publish(session.UserID, events.Event{Type: events.SessionDeleted, ID: session.ID.String()})
	return c.JSON(fiber.Map{"message": "Session deleted"})
}

var errSessionNotFound = fiber.NewError(fiber.StatusNotFound, "Session not found")

func (h *Handler) loadSession(c *fiber.Ctx) (models.StudySession, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return models.StudySession{}, errSessionNotFound
	}

	var session models.StudySession
	if err := h.db.WithContext(c.UserContext()).Preload("RelatedNotes").First(&session, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.StudySession{}, errSessionNotFound
		}
		h.log.Error("get session", zap.String("session_id", id.String()), zap.Error(err))
		return models.StudySession{}, fiber.NewError(fiber.StatusInternalServerError, "Could not load session")
	}
	if !canAccess(c, session.UserID) {
		return models.StudySession{}, errSessionNotFound
	}
	return session, nil
}

// findRelatedNotes narrows candidates with LIKE, then matches exactly in Go
// because tags are stored as a JSON array.
func (h *Handler) findRelatedNotes(ctx context.Context, owner, term string) ([]models.Note, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil, nil
	}
	pattern := "%" + escapeLike(term) + "%"

	var candidates []models.Note
	err := h.db.WithContext(ctx).
		Where("user_id = ?", owner).
		Where(`(LOWER(subject) LIKE ? ESCAPE '\' OR LOWER(title) LIKE ? ESCAPE '\' OR LOWER(tags) LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern).
		Order("created_at ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	related := candidates[:0]
	for _, n := range candidates {
		if noteMentions(n, term) {
			related = append(related, n)
		}
	}
	return related, nil
}

func noteMentions(n models.Note, term string) bool {
	if strings.Contains(strings.ToLower(n.Subject), term) || strings.Contains(strings.ToLower(n.Title), term) {
		return true
	}
	for _, tag := range n.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
