package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arnold/productivityhub-api/internal/models"
	"github.com/arnold/productivityhub-api/internal/streak"
)

// HabitAPI is the subset of Client the cache talks to.
type HabitAPI interface {
	ListHabits(ctx context.Context, owner string) ([]models.Habit, error)
	CreateHabit(ctx context.Context, req models.CreateHabitRequest) (models.Habit, error)
	UpdateHabit(ctx context.Context, id uuid.UUID, req models.UpdateHabitRequest) (models.Habit, error)
	ToggleHabit(ctx context.Context, id uuid.UUID) (models.Habit, error)
	DeleteHabit(ctx context.Context, id uuid.UUID) error
}

// Cache holds an ordered copy of the caller's habits and applies changes
// optimistically. When the server rejects a change, or does not answer within
// the timeout, only the affected habit is rolled back to its snapshot.
type Cache struct {
	mu      sync.Mutex
	api     HabitAPI
	habits  []models.Habit
	loc     *time.Location
	now     func() time.Time
	timeout time.Duration
}

type CacheOption func(*Cache)

// WithLocation sets the zone used for the optimistic streak computation. It
// should match the zone the client sends to the server.
func WithLocation(loc *time.Location) CacheOption {
	return func(c *Cache) { c.loc = loc }
}

func WithRequestTimeout(d time.Duration) CacheOption {
	return func(c *Cache) { c.timeout = d }
}

func NewCache(api HabitAPI, opts ...CacheOption) *Cache {
	c := &Cache{
		api:     api,
		loc:     time.Local,
		now:     time.Now,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load replaces the cached list with the server's.
func (c *Cache) Load(ctx context.Context, owner string) error {
	habits, err := c.api.ListHabits(ctx, owner)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.habits = make([]models.Habit, len(habits))
	for i, h := range habits {
		c.habits[i] = clone(h)
	}
	return nil
}

// Habits returns a copy of the cached list in display order.
func (c *Cache) Habits() []models.Habit {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Habit, len(c.habits))
	for i, h := range c.habits {
		out[i] = clone(h)
	}
	return out
}

func (c *Cache) Get(id uuid.UUID) (models.Habit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.index(id); i >= 0 {
		return clone(c.habits[i]), true
	}
	return models.Habit{}, false
}

// Create adds a habit once the server has assigned its id.
func (c *Cache) Create(ctx context.Context, req models.CreateHabitRequest) (models.Habit, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	created, err := c.api.CreateHabit(ctx, req)
	if err != nil {
		return models.Habit{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.habits = append(c.habits, clone(created))
	return clone(created), nil
}

// Toggle flips the habit locally, then confirms with the server. On success the
// server's record replaces the optimistic one; on failure the snapshot is restored.
func (c *Cache) Toggle(ctx context.Context, id uuid.UUID) (models.Habit, error) {
	snapshot, err := c.apply(id, func(h models.Habit) (models.Habit, error) {
		return streak.Toggle(h, c.now().In(c.loc))
	})
	if err != nil {
		return models.Habit{}, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	saved, err := c.api.ToggleHabit(ctx, id)
	return c.settle(snapshot, saved, err)
}

// Save edits the descriptive fields with the same optimistic rollback as Toggle.
func (c *Cache) Save(ctx context.Context, id uuid.UUID, req models.UpdateHabitRequest) (models.Habit, error) {
	snapshot, err := c.apply(id, func(h models.Habit) (models.Habit, error) {
		req.Apply(&h)
		return h, nil
	})
	if err != nil {
		return models.Habit{}, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	saved, err := c.api.UpdateHabit(ctx, id, req)
	return c.settle(snapshot, saved, err)
}

// Delete removes the habit locally and puts it back at its position if the
// server refuses.
func (c *Cache) Delete(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	pos := c.index(id)
	if pos < 0 {
		c.mu.Unlock()
		return fmt.Errorf("habit %s: %w", id, ErrNotFound)
	}
	snapshot := clone(c.habits[pos])
	c.habits = append(c.habits[:pos], c.habits[pos+1:]...)
	c.mu.Unlock()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	if err := c.api.DeleteHabit(ctx, id); err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.index(id) < 0 {
			pos = min(pos, len(c.habits))
			c.habits = append(c.habits[:pos], append([]models.Habit{snapshot}, c.habits[pos:]...)...)
		}
		return err
	}
	return nil
}

// apply swaps in the result of change and returns the prior record.
func (c *Cache) apply(id uuid.UUID, change func(models.Habit) (models.Habit, error)) (models.Habit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(id)
	if i < 0 {
		return models.Habit{}, fmt.Errorf("habit %s: %w", id, ErrNotFound)
	}
	snapshot := clone(c.habits[i])
	next, err := change(clone(snapshot))
	if err != nil {
		return models.Habit{}, err
	}
	c.habits[i] = next
	return snapshot, nil
}

// settle records the server's answer, or restores snapshot when there is none.
func (c *Cache) settle(snapshot, saved models.Habit, err error) (models.Habit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(snapshot.ID)
	if err != nil {
		if i >= 0 {
			c.habits[i] = snapshot
		}
		return models.Habit{}, err
	}
	if i >= 0 {
		c.habits[i] = clone(saved)
	}
	return clone(saved), nil
}

func (c *Cache) index(id uuid.UUID) int {
	for i := range c.habits {
		if c.habits[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Cache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func clone(h models.Habit) models.Habit {
	if h.LastCompleted != nil {
		t := *h.LastCompleted
		h.LastCompleted = &t
	}
	return h
}
