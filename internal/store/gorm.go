package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arnold/productivityhub-api/internal/models"
)

type GormHabitStore struct {
	db *gorm.DB
}

func NewGormHabitStore(db *gorm.DB) *GormHabitStore {
	return &GormHabitStore{db: db}
}

func (s *GormHabitStore) Get(ctx context.Context, id uuid.UUID) (models.Habit, error) {
	var h models.Habit
	if err := s.db.WithContext(ctx).First(&h, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Habit{}, notFound(id)
		}
		return models.Habit{}, fmt.Errorf("get habit %s: %w", id, err)
	}
	return h, nil
}

func (s *GormHabitStore) Create(ctx context.Context, h models.Habit) (models.Habit, error) {
	h.Version = 0
	if err := s.db.WithContext(ctx).Create(&h).Error; err != nil {
		return models.Habit{}, fmt.Errorf("create habit: %w", err)
	}
	return h, nil
}

func (s *GormHabitStore) Update(ctx context.Context, h models.Habit) (models.Habit, error) {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&models.Habit{}).
		Where("id = ? AND version = ?", h.ID, h.Version).
		Updates(map[string]interface{}{
			"name":            h.Name,
			"description":     h.Description,
			"frequency":       h.Frequency,
			"goal_streak":     h.GoalStreak,
			"current_streak":  h.CurrentStreak,
			"best_streak":     h.BestStreak,
			"completed_today": h.CompletedToday,
			"last_completed":  h.LastCompleted,
			"version":         h.Version + 1,
			"updated_at":      now,
		})
	if result.Error != nil {
		return models.Habit{}, fmt.Errorf("update habit %s: %w", h.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Habit{}).Where("id = ?", h.ID).Count(&count).Error; err != nil {
			return models.Habit{}, fmt.Errorf("update habit %s: %w", h.ID, err)
		}
		if count == 0 {
			return models.Habit{}, notFound(h.ID)
		}
		return models.Habit{}, fmt.Errorf("%w: %s", ErrConflict, h.ID)
	}
	return s.Get(ctx, h.ID)
}

func (s *GormHabitStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&models.Habit{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete habit %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound(id)
	}
	return nil
}

func (s *GormHabitStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Habit, error) {
	habits := []models.Habit{}
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at ASC").
		Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list habits for %s: %w", ownerID, err)
	}
	return habits, nil
}
