package streak

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnold/productivityhub-api/internal/models"
)

var testLoc = time.FixedZone("UTC-5", -5*60*60)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation("2006-01-02 15:04", value, testLoc)
	require.NoError(t, err)
	return parsed
}

func day(t *testing.T, value string) time.Time {
	t.Helper()
	return at(t, value+" 09:30")
}

func ptr(v time.Time) *time.Time { return &v }

func assertDate(t *testing.T, want string, got *time.Time) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want, DateOf(*got, testLoc).String())
}

func TestToggleScenarios(t *testing.T) {
	t.Run("consecutive day extends the streak", func(t *testing.T) {
		h := models.Habit{CurrentStreak: 5, BestStreak: 10, LastCompleted: ptr(day(t, "2024-03-10"))}

		next, err := Toggle(h, day(t, "2024-03-11"))
		require.NoError(t, err)
		assert.Equal(t, 6, next.CurrentStreak)
		assert.Equal(t, 10, next.BestStreak)
		assert.True(t, next.CompletedToday)
		assertDate(t, "2024-03-11", next.LastCompleted)
	})

	t.Run("first completion starts at one", func(t *testing.T) {
		h := models.Habit{}

		next, err := Toggle(h, day(t, "2024-01-01"))
		require.NoError(t, err)
		assert.Equal(t, 1, next.CurrentStreak)
		assert.Equal(t, 1, next.BestStreak)
		assert.True(t, next.CompletedToday)
		assertDate(t, "2024-01-01", next.LastCompleted)
	})

	t.Run("uncompletion decrements and keeps best and last date", func(t *testing.T) {
		h := models.Habit{CurrentStreak: 3, BestStreak: 3, CompletedToday: true, LastCompleted: ptr(day(t, "2024-03-11"))}

		next, err := Toggle(h, day(t, "2024-03-11"))
		require.NoError(t, err)
		assert.Equal(t, 2, next.CurrentStreak)
		assert.Equal(t, 3, next.BestStreak)
		assert.False(t, next.CompletedToday)
		assertDate(t, "2024-03-11", next.LastCompleted)
	})
}

func TestToggleComplete(t *testing.T) {
	tests := []struct {
		name        string
		last        string
		current     int
		best        int
		today       string
		wantCurrent int
		wantBest    int
	}{
		{name: "yesterday", last: "2024-03-10 09:30", current: 2, best: 2, today: "2024-03-11 09:30", wantCurrent: 3, wantBest: 3},
		{name: "same day re-mark", last: "2024-03-11 08:00", current: 4, best: 7, today: "2024-03-11 20:00", wantCurrent: 5, wantBest: 7},
		{name: "gap of two days resets", last: "2024-03-09 09:30", current: 6, best: 6, today: "2024-03-11 09:30", wantCurrent: 1, wantBest: 6},
		{name: "gap of three days resets", last: "2024-03-08 09:30", current: 6, best: 9, today: "2024-03-11 09:30", wantCurrent: 1, wantBest: 9},
		{name: "future date resets", last: "2024-03-12 09:30", current: 3, best: 3, today: "2024-03-11 09:30", wantCurrent: 1, wantBest: 3},
		{name: "late night then early morning is consecutive", last: "2024-03-10 23:59", current: 1, best: 1, today: "2024-03-11 00:01", wantCurrent: 2, wantBest: 2},
		{name: "more than 24 hours but still yesterday", last: "2024-03-10 00:01", current: 1, best: 1, today: "2024-03-11 23:59", wantCurrent: 2, wantBest: 2},
		{name: "month boundary", last: "2024-02-29 12:00", current: 8, best: 8, today: "2024-03-01 12:00", wantCurrent: 9, wantBest: 9},
		{name: "year boundary", last: "2023-12-31 12:00", current: 1, best: 4, today: "2024-01-01 12:00", wantCurrent: 2, wantBest: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := models.Habit{CurrentStreak: tt.current, BestStreak: tt.best, LastCompleted: ptr(at(t, tt.last))}
			today := at(t, tt.today)

			next, err := Toggle(h, today)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCurrent, next.CurrentStreak)
			assert.Equal(t, tt.wantBest, next.BestStreak)
			assert.True(t, next.CompletedToday)
			require.NotNil(t, next.LastCompleted)
			assert.True(t, next.LastCompleted.Equal(today))
		})
	}
}

func TestToggleComparesDatesInTodaysLocation(t *testing.T) {
	// 2024-03-11 03:00 UTC is still 2024-03-10 in UTC-5.
	last := time.Date(2024, 3, 11, 3, 0, 0, 0, time.UTC)
	h := models.Habit{CurrentStreak: 1, BestStreak: 1, LastCompleted: &last}

	next, err := Toggle(h, day(t, "2024-03-11"))
	require.NoError(t, err)
	assert.Equal(t, 2, next.CurrentStreak)
}

func TestToggleUncompleteAtZero(t *testing.T) {
	h := models.Habit{CurrentStreak: 0, BestStreak: 4, CompletedToday: true, LastCompleted: ptr(day(t, "2024-03-11"))}

	next, err := Toggle(h, day(t, "2024-03-11"))
	require.NoError(t, err)
	assert.Equal(t, 0, next.CurrentStreak)
	assert.Equal(t, 4, next.BestStreak)
	assert.False(t, next.CompletedToday)
}

func TestToggleRoundTripSameDay(t *testing.T) {
	today := day(t, "2024-03-11")
	h := models.Habit{CurrentStreak: 3, BestStreak: 3, CompletedToday: true, LastCompleted: ptr(today)}

	undone, err := Toggle(h, today)
	require.NoError(t, err)
	redone, err := Toggle(undone, today)
	require.NoError(t, err)

	assert.True(t, redone.CompletedToday)
	assert.Equal(t, h.CurrentStreak+1, redone.CurrentStreak)
	assert.Equal(t, 4, redone.BestStreak)
}

func TestToggleDoesNotMutateInput(t *testing.T) {
	last := day(t, "2024-03-10")
	h := models.Habit{Name: "read", CurrentStreak: 2, BestStreak: 2, LastCompleted: &last}

	next, err := Toggle(h, day(t, "2024-03-11"))
	require.NoError(t, err)

	assert.Equal(t, 2, h.CurrentStreak)
	assert.False(t, h.CompletedToday)
	assert.Equal(t, day(t, "2024-03-10"), *h.LastCompleted)
	assert.Equal(t, "read", next.Name)
}

func TestToggleRejectsInvalidState(t *testing.T) {
	today := day(t, "2024-03-11")
	tests := []struct {
		name  string
		habit models.Habit
	}{
		{name: "negative current", habit: models.Habit{CurrentStreak: -1, BestStreak: 0}},
		{name: "negative best", habit: models.Habit{CurrentStreak: 0, BestStreak: -2}},
		{name: "best below current", habit: models.Habit{CurrentStreak: 5, BestStreak: 4}},
		{name: "completed without date", habit: models.Habit{CurrentStreak: 1, BestStreak: 1, CompletedToday: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Toggle(tt.habit, today)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidState))
			assert.Equal(t, tt.habit, next)
		})
	}
}

func TestToggleSequenceInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 200; run++ {
		h := models.Habit{}
		today := day(t, "2024-01-01")

		for step := 0; step < 60; step++ {
			today = today.AddDate(0, 0, rng.Intn(4))
			prev := h

			next, err := Toggle(h, today)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, next.CurrentStreak, 0)
			assert.GreaterOrEqual(t, next.BestStreak, next.CurrentStreak)
			assert.GreaterOrEqual(t, next.BestStreak, prev.BestStreak)
			assert.NotEqual(t, prev.CompletedToday, next.CompletedToday)
			if prev.CompletedToday {
				assert.Equal(t, prev.BestStreak, next.BestStreak)
				assert.Equal(t, prev.LastCompleted, next.LastCompleted)
			} else {
				require.NotNil(t, next.LastCompleted)
				assert.Equal(t, DateOf(today, testLoc), DateOf(*next.LastCompleted, testLoc))
			}
			h = next
		}
	}
}

func TestDirection(t *testing.T) {
	assert.Equal(t, Complete, Direction(models.Habit{}))
	assert.Equal(t, Uncomplete, Direction(models.Habit{CompletedToday: true}))
}

func TestDateYesterday(t *testing.T) {
	tests := []struct {
		date Date
		want string
	}{
		{Date{2024, time.March, 11}, "2024-03-10"},
		{Date{2024, time.March, 1}, "2024-02-29"},
		{Date{2023, time.March, 1}, "2023-02-28"},
		{Date{2024, time.January, 1}, "2023-12-31"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.date.Yesterday().String())
	}
}
