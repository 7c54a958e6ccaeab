package handlers_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/arnold/productivityhub-api/internal/models"
)

type requestMarker struct{}

func TestQueriesUseRequestContext(t *testing.T) {
	e := newEnv(t)
	token, userID := e.register(t, "ctx@example.com")
	require.NoError(t, e.db.Create(&models.Note{
		UserID:      userID,
		Title:       "Limits",
		Content:     "epsilon-delta",
		Attachments: []models.Attachment{{Filename: "a.pdf", URL: "/uploads/a.pdf"}},
	}).Error)
	require.NoError(t, e.db.Create(&models.Notification{UserID: userID, Type: "session_reminder", Title: "Soon"}).Error)

	var (
		mu       sync.Mutex
		queries  int
		detached []string
	)
	require.NoError(t, e.db.Callback().Query().Before("gorm:query").Register("test:request_context", func(tx *gorm.DB) {
		mu.Lock()
		defer mu.Unlock()
		queries++
		if tx.Statement.Context.Value(requestMarker{}) == nil {
			detached = append(detached, tx.Statement.Table)
		}
	}))

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.SetUserContext(context.WithValue(context.Background(), requestMarker{}, true))
		return c.Next()
	})
	app.Use(e.auth.Protected())
	app.Get("/notes", e.handler.GetNotes)
	app.Get("/subjects", e.handler.GetSubjects)
	app.Get("/notifications", e.handler.GetNotifications)
	app.Get("/me", e.handler.GetMe)

	for _, path := range []string{"/notes", "/subjects", "/notifications", "/me"} {
		req := httptest.NewRequest("GET", path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, 200, resp.StatusCode, path)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Greater(t, queries, 4)
	assert.Empty(t, detached, "queries issued without the request context")
}
