// Package store persists habits. Two implementations are provided: a GORM
// backed durable store and a process-local memory store; the server picks
// one at startup.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/arnold/productivityhub-api/internal/models"
)

var (
	ErrNotFound = errors.New("habit not found")
	// ErrConflict means the habit changed since it was read.
	ErrConflict = errors.New("habit was modified concurrently")
)

// HabitStore is the persistence contract for habits.
//
// Update is optimistic: it only succeeds when h.Version matches the stored
// version, and the returned habit carries the incremented version.
type HabitStore interface {
	Get(ctx context.Context, id uuid.UUID) (models.Habit, error)
	Create(ctx context.Context, h models.Habit) (models.Habit, error)
	Update(ctx context.Context, h models.Habit) (models.Habit, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.Habit, error)
}

// Kind selects a HabitStore implementation.
const (
	KindDatabase = "database"
	KindMemory   = "memory"
)

func notFound(id uuid.UUID) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
