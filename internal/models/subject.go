package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Subject struct {
	ID        uuid.UUID `json:"_id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;index;not null"`
	Name      string    `json:"name" gorm:"not null"`
	Category  string    `json:"category" gorm:"not null"`
	Rating    int       `json:"rating" gorm:"not null"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Subject) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

const DefaultRating = 3

// ClampRating keeps a rating within 1..5; zero means unrated and maps to the default.
func ClampRating(rating int) int {
	switch {
	case rating == 0:
		return DefaultRating
	case rating < 1:
		return 1
	case rating > 5:
		return 5
	}
	return rating
}

// Subject DTOs
type CreateSubjectRequest struct {
	Name     string `json:"name" validate:"required"`
	Category string `json:"category" validate:"required"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
}

type UpdateSubjectRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}
