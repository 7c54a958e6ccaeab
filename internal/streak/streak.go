// Package streak holds the habit streak state machine.
//
// A habit is either not completed today or completed today. Toggle flips
// between the two and recomputes the streak counters as part of the
// transition:
//
//   - completing with no previous completion starts a streak of 1
//   - completing the calendar day after the last completion extends the streak
//   - completing again on the same calendar day (after an undo) also extends it
//   - any other last-completion date, including one in the future, resets to 1
//   - undoing a completion decrements the streak, never below zero, and keeps
//     bestStreak and lastCompleted as they were
//
// Days are compared by calendar date in the location of the supplied "today",
// not by elapsed hours.
package streak

import (
	"errors"
	"fmt"
	"time"

	"github.com/arnold/productivityhub-api/internal/models"
)

// ErrInvalidState is returned for habits that violate the streak invariants.
var ErrInvalidState = errors.New("invalid habit state")

// Transition directions, as reported by Direction.
const (
	Complete   = "complete"
	Uncomplete = "uncomplete"
)

// Validate checks the invariants Toggle relies on.
func Validate(h models.Habit) error {
	switch {
	case h.CurrentStreak < 0:
		return fmt.Errorf("%w: currentStreak %d is negative", ErrInvalidState, h.CurrentStreak)
	case h.BestStreak < 0:
		return fmt.Errorf("%w: bestStreak %d is negative", ErrInvalidState, h.BestStreak)
	case h.BestStreak < h.CurrentStreak:
		return fmt.Errorf("%w: bestStreak %d is below currentStreak %d", ErrInvalidState, h.BestStreak, h.CurrentStreak)
	case h.CompletedToday && h.LastCompleted == nil:
		return fmt.Errorf("%w: completedToday set without lastCompleted", ErrInvalidState)
	}
	return nil
}

// Direction names the transition Toggle will apply to h.
func Direction(h models.Habit) string {
	if h.CompletedToday {
		return Uncomplete
	}
	return Complete
}

// Toggle returns the next state of h after a completion toggle on today.
// h itself is not modified.
func Toggle(h models.Habit, today time.Time) (models.Habit, error) {
	if err := Validate(h); err != nil {
		return h, err
	}

	next := h
	if h.CompletedToday {
		next.CompletedToday = false
		next.CurrentStreak = max(0, h.CurrentStreak-1)
		return next, nil
	}

	next.CurrentStreak = extend(h, today)
	next.BestStreak = max(h.BestStreak, next.CurrentStreak)
	next.CompletedToday = true
	completed := today
	next.LastCompleted = &completed
	return next, nil
}

func extend(h models.Habit, today time.Time) int {
	if h.LastCompleted == nil {
		return 1
	}
	loc := today.Location()
	last := DateOf(*h.LastCompleted, loc)
	now := DateOf(today, loc)
	if last == now || last == now.Yesterday() {
		return h.CurrentStreak + 1
	}
	return 1
}

// Date is a calendar date without a time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t as seen in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// Yesterday returns the previous calendar date.
func (d Date) Yesterday() Date {
	// Noon keeps the arithmetic clear of DST transitions at midnight.
	y, m, day := time.Date(d.Year, d.Month, d.Day-1, 12, 0, 0, 0, time.UTC).Date()
	return Date{Year: y, Month: m, Day: day}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}
