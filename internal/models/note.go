package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultSubject is used for notes created without a subject.
const DefaultSubject = "General"

type Note struct {
	ID          uuid.UUID    `json:"_id" gorm:"type:uuid;primaryKey"`
	UserID      string       `json:"userId" gorm:"index;not null"`
	Title       string       `json:"title" gorm:"not null"`
	Content     string       `json:"content" gorm:"not null"`
	Subject     string       `json:"subject" gorm:"index;not null;default:'General'"`
	Tags        []string     `json:"tags" gorm:"type:text;serializer:json"`
	Attachments []Attachment `json:"attachments" gorm:"foreignKey:NoteID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// Attachment is a file uploaded alongside a note and served from /uploads.
type Attachment struct {
	ID           uuid.UUID `json:"_id" gorm:"type:uuid;primaryKey"`
	NoteID       uuid.UUID `json:"-" gorm:"type:uuid;index;not null"`
	Filename     string    `json:"filename" gorm:"not null"`
	OriginalName string    `json:"originalName"`
	URL          string    `json:"url" gorm:"not null"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
