package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GuestUserID owns every record created without an authenticated user.
const GuestUserID = "guest"

// DefaultGoalStreak is the target streak applied when a habit is created without one.
const DefaultGoalStreak = 21

type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyWeekdays Frequency = "weekdays"
	FrequencyWeekends Frequency = "weekends"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyWeekdays, FrequencyWeekends:
		return true
	}
	return false
}

// Habit is a tracked habit with its streak counters. Frequency is informational
// and never affects the streak math.
type Habit struct {
	ID             uuid.UUID  `json:"_id" gorm:"type:uuid;primaryKey"`
	UserID         string     `json:"userId" gorm:"index;not null"`
	Name           string     `json:"name" gorm:"not null"`
	Description    string     `json:"description"`
	Frequency      Frequency  `json:"frequency" gorm:"not null;default:'daily'"`
	GoalStreak     int        `json:"goalStreak" gorm:"not null;default:21"`
	CurrentStreak  int        `json:"currentStreak" gorm:"not null;default:0"`
	BestStreak     int        `json:"bestStreak" gorm:"not null;default:0"`
	CompletedToday bool       `json:"completedToday" gorm:"not null;default:false"`
	LastCompleted  *time.Time `json:"lastCompleted"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	Version        int        `json:"__v" gorm:"not null;default:0"`
}

func (h *Habit) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// Habit DTOs. Both are decoded strictly: unknown fields are rejected.
type CreateHabitRequest struct {
	UserID         *string    `json:"userId" validate:"omitempty,max=128"`
	Name           string     `json:"name" validate:"required,max=200"`
	Description    *string    `json:"description" validate:"omitempty,max=2000"`
	Frequency      *Frequency `json:"frequency" validate:"omitempty,oneof=daily weekly weekdays weekends"`
	GoalStreak     *int       `json:"goalStreak" validate:"omitempty,gt=0"`
	CurrentStreak  *int       `json:"currentStreak" validate:"omitempty,gte=0"`
	BestStreak     *int       `json:"bestStreak" validate:"omitempty,gte=0"`
	CompletedToday *bool      `json:"completedToday"`
	LastCompleted  *DateTime  `json:"lastCompleted"`
}

// NewHabit applies the creation defaults to the request. The caller decides the
// owner and the zone a date-only lastCompleted is read in.
func (r CreateHabitRequest) NewHabit(ownerID string, loc *time.Location) Habit {
	h := Habit{
		UserID:     ownerID,
		Name:       strings.TrimSpace(r.Name),
		Frequency:  FrequencyDaily,
		GoalStreak: DefaultGoalStreak,
	}
	if r.Description != nil {
		h.Description = *r.Description
	}
	if r.Frequency != nil {
		h.Frequency = *r.Frequency
	}
	if r.GoalStreak != nil {
		h.GoalStreak = *r.GoalStreak
	}
	if r.CurrentStreak != nil {
		h.CurrentStreak = *r.CurrentStreak
	}
	if r.BestStreak != nil {
		h.BestStreak = *r.BestStreak
	}
	if r.CompletedToday != nil {
		h.CompletedToday = *r.CompletedToday
	}
	if r.LastCompleted != nil {
		t := r.LastCompleted.In(loc)
		h.LastCompleted = &t
	}
	return h
}

// UpdateHabitRequest carries the editable, non-streak fields.
type UpdateHabitRequest struct {
	Name        *string    `json:"name" validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Frequency   *Frequency `json:"frequency" validate:"omitempty,oneof=daily weekly weekdays weekends"`
	GoalStreak  *int       `json:"goalStreak" validate:"omitempty,gt=0"`
}

// Apply copies the set fields onto h. Streak fields are never touched.
func (r UpdateHabitRequest) Apply(h *Habit) {
	if r.Name != nil {
		h.Name = strings.TrimSpace(*r.Name)
	}
	if r.Description != nil {
		h.Description = *r.Description
	}
	if r.Frequency != nil {
		h.Frequency = *r.Frequency
	}
	if r.GoalStreak != nil {
		h.GoalStreak = *r.GoalStreak
	}
}
