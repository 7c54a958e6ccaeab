package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arnold/productivityhub-api/internal/models"
)

// MemoryHabitStore keeps habits in process memory. Contents are lost on restart.
type MemoryHabitStore struct {
	mu     sync.RWMutex
	habits map[uuid.UUID]models.Habit
	order  []uuid.UUID
	now    func() time.Time
}

func NewMemoryHabitStore() *MemoryHabitStore {
	return &MemoryHabitStore{
		habits: make(map[uuid.UUID]models.Habit),
		now:    time.Now,
	}
}

func (s *MemoryHabitStore) Get(_ context.Context, id uuid.UUID) (models.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.habits[id]
	if !ok {
		return models.Habit{}, notFound(id)
	}
	return clone(h), nil
}

func (s *MemoryHabitStore) Create(_ context.Context, h models.Habit) (models.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	now := s.now()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now
	}
	h.UpdatedAt = now
	h.Version = 0

	h = clone(h)
	if _, exists := s.habits[h.ID]; !exists {
		s.order = append(s.order, h.ID)
	}
	s.habits[h.ID] = h
	return clone(h), nil
}

func (s *MemoryHabitStore) Update(_ context.Context, h models.Habit) (models.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.habits[h.ID]
	if !ok {
		return models.Habit{}, notFound(h.ID)
	}
	if stored.Version != h.Version {
		return models.Habit{}, fmt.Errorf("%w: %s", ErrConflict, h.ID)
	}

	h = clone(h)
	h.UserID = stored.UserID
	h.CreatedAt = stored.CreatedAt
	h.UpdatedAt = s.now()
	h.Version = stored.Version + 1
	s.habits[h.ID] = h
	return clone(h), nil
}

func (s *MemoryHabitStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.habits[id]; !ok {
		return notFound(id)
	}
	delete(s.habits, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryHabitStore) ListByOwner(_ context.Context, ownerID string) ([]models.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	habits := []models.Habit{}
	for _, id := range s.order {
		if h := s.habits[id]; h.UserID == ownerID {
			habits = append(habits, clone(h))
		}
	}
	return habits, nil
}

// clone detaches the LastCompleted pointer so callers never share it with the map.
func clone(h models.Habit) models.Habit {
	if h.LastCompleted != nil {
		t := *h.LastCompleted
		h.LastCompleted = &t
	}
	return h
}
