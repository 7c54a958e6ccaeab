package handlers

import (
	"errors"
	"strings"
	"time"
	_ "time/tzdata" // ?tz= must resolve IANA names without system zoneinfo

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arnold/productivityhub-api/internal/models"
	"github.com/arnold/productivityhub-api/internal/store"
	"github.com/arnold/productivityhub-api/internal/streak"
)

func (h *Handler) GetHabits(c *fiber.Ctx) error {
	owner, ok := requestOwner(c, c.Query("userId"))
	if !ok {
		return unauthorized(c)
	}

	habits, err := h.habits.ListByOwner(c.UserContext(), owner)
	if err != nil {
		h.log.Error("list habits", zap.String("user_id", owner), zap.Error(err))
		return internalError(c, "Failed to fetch habits")
	}
	return c.JSON(habits)
}

func (h *Handler) GetHabit(c *fiber.Ctx) error {
	habit, err := h.loadHabit(c)
	if err != nil {
		return err
	}
	return c.JSON(habit)
}

func (h *Handler) CreateHabit(c *fiber.Ctx) error {
	var req models.CreateHabitRequest
	if err := decodeStrict(c, &req); err != nil {
		return badRequest(c, decodeErrorMessage(err))
	}
	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, validationMessage(err))
	}
	if strings.TrimSpace(req.Name) == "" {
		return badRequest(c, "name is required")
	}

	requested := ""
	if req.UserID != nil {
		requested = *req.UserID
	}
	owner, ok := requestOwner(c, requested)
	if !ok {
		return unauthorized(c)
	}

	// a date-only lastCompleted belongs to the same calendar as toggles
	habit := req.NewHabit(owner, h.today(c).Location())
	if err := streak.Validate(habit); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.habits.Create(c.UserContext(), habit)
	if err != nil {
		h.log.Error("create habit", zap.String("user_id", owner), zap.Error(err))
		return internalError(c, "Failed to create habit")
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateHabit edits the descriptive fields of a habit. Streak state only
// changes through ToggleHabit.
func (h *Handler) UpdateHabit(c *fiber.Ctx) error {
	var req models.UpdateHabitRequest
	if err := decodeStrict(c, &req); err != nil {
		return badRequest(c, decodeErrorMessage(err))
	}
	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, validationMessage(err))
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return badRequest(c, "name cannot be empty")
	}

	habit, err := h.loadHabit(c)
	if err != nil {
		return err
	}
	req.Apply(&habit)

	saved, err := h.habits.Update(c.UserContext(), habit)
	if err != nil {
		return h.writeFailed(c, habit, "update", err)
	}
	return c.JSON(saved)
}

// ToggleHabit flips today's completion and returns the persisted record.
// A failed write leaves the stored habit untouched and returns an error
// instead of the computed state.
func (h *Handler) ToggleHabit(c *fiber.Ctx) error {
	habit, err := h.loadHabit(c)
	if err != nil {
		return err
	}

	direction := streak.Direction(habit)
	next, err := streak.Toggle(habit, h.today(c))
	if err != nil {
		h.log.Warn("refusing to toggle malformed habit", zap.String("habit_id", habit.ID.String()), zap.Error(err))
		return badRequest(c, err.Error())
	}

	saved, err := h.habits.Update(c.UserContext(), next)
	if err != nil {
		return h.writeFailed(c, habit, "toggle", err)
	}
	h.metrics.HabitToggles.WithLabelValues(direction).Inc()
	return c.JSON(saved)
}

func (h *Handler) DeleteHabit(c *fiber.Ctx) error {
	habit, err := h.loadHabit(c)
	if err != nil {
		return err
	}

	if err := h.habits.Delete(c.UserContext(), habit.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "Habit")
		}
		h.log.Error("delete habit", zap.String("habit_id", habit.ID.String()), zap.Error(err))
		return internalError(c, "Failed to delete habit")
	}
	return c.JSON(fiber.Map{"message": "Habit deleted"})
}

var errHabitNotFound = fiber.NewError(fiber.StatusNotFound, "Habit not found")

// loadHabit fetches the habit named by the :id param. Its errors are
// *fiber.Error values rendered by ErrorHandler.
func (h *Handler) loadHabit(c *fiber.Ctx) (models.Habit, error) {
	// an unparseable id cannot name a stored habit
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return models.Habit{}, errHabitNotFound
	}

	habit, err := h.habits.Get(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Habit{}, errHabitNotFound
		}
		h.log.Error("get habit", zap.String("habit_id", id.String()), zap.Error(err))
		return models.Habit{}, fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch habit")
	}
	if !canAccess(c, habit.UserID) {
		return models.Habit{}, errHabitNotFound
	}
	return habit, nil
}

func (h *Handler) writeFailed(c *fiber.Ctx, habit models.Habit, op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return notFound(c, "Habit")
	case errors.Is(err, store.ErrConflict):
		h.metrics.HabitConflicts.Inc()
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Habit was modified by another request, reload and retry",
		})
	}
	h.log.Error(op+" habit",
		zap.String("habit_id", habit.ID.String()),
		zap.String("user_id", habit.UserID),
		zap.Error(err))
	return internalError(c, "Failed to save habit")
}

// today is the request's clock reading, moved into the caller's zone when a
// valid ?tz= IANA name is supplied so calendar days match the user's.
func (h *Handler) today(c *fiber.Ctx) time.Time {
	now := h.now()
	if name := c.Query("tz"); name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return now.In(loc)
		}
	}
	return now
}
