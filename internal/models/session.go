package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reminder options, keyed by the id the frontend stores on the session.
var reminderOffsets = map[string]time.Duration{
	"none":  0,
	"5min":  5 * time.Minute,
	"10min": 10 * time.Minute,
	"15min": 15 * time.Minute,
	"30min": 30 * time.Minute,
	"1hr":   time.Hour,
}

const DefaultReminder = "10min"

// ReminderOffset returns how long before the start a reminder fires.
// ok is false for unknown reminder ids.
func ReminderOffset(reminder string) (offset time.Duration, ok bool) {
	offset, ok = reminderOffsets[reminder]
	return offset, ok
}

type StudySession struct {
	ID           uuid.UUID `json:"_id" gorm:"type:uuid;primaryKey"`
	UserID       string    `json:"userId" gorm:"index;not null"`
	Title        string    `json:"title" gorm:"not null"`
	Description  string    `json:"description"`
	Subject      string    `json:"subject"`
	StartTime    time.Time `json:"startTime" gorm:"index"`
	Duration     int       `json:"duration" gorm:"not null;default:60"` // minutes
	Reminder     string    `json:"reminder" gorm:"not null;default:'10min'"`
	Completed    bool      `json:"completed" gorm:"default:false"`
	Reminded     bool      `json:"reminded" gorm:"default:false"`
	RelatedNotes []Note    `json:"relatedNotes" gorm:"many2many:session_notes"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (s *StudySession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// ReminderAt is the instant the reminder should fire; ok is false when the
// session has no reminder.
func (s *StudySession) ReminderAt() (at time.Time, ok bool) {
	offset, known := ReminderOffset(s.Reminder)
	if !known || offset == 0 {
		return time.Time{}, false
	}
	return s.StartTime.Add(-offset), true
}

// Session DTOs. StartTime accepts RFC3339 or the "2006-01-02T15:04" form
// produced by datetime-local inputs.
type CreateSessionRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Subject     string `json:"subject" validate:"max=200"`
	StartTime   string `json:"startTime" validate:"required"`
	Duration    *int   `json:"duration" validate:"omitempty,gt=0,lte=1440"`
	Reminder    string `json:"reminder" validate:"omitempty,oneof=none 5min 10min 15min 30min 1hr"`
	Completed   bool   `json:"completed"`
}

type UpdateSessionRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Subject     *string `json:"subject" validate:"omitempty,max=200"`
	StartTime   *string `json:"startTime"`
	Duration    *int    `json:"duration" validate:"omitempty,gt=0,lte=1440"`
	Reminder    *string `json:"reminder" validate:"omitempty,oneof=none 5min 10min 15min 30min 1hr"`
	Completed   *bool   `json:"completed"`
}

var startTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}

// ParseStartTime parses the accepted start-time encodings, using loc for the
// zone-less forms.
func ParseStartTime(value string, loc *time.Location) (time.Time, error) {
	var err error
	for _, layout := range startTimeLayouts {
		var t time.Time
		if layout == time.RFC3339 {
			t, err = time.Parse(layout, value)
		} else {
			t, err = time.ParseInLocation(layout, value, loc)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
