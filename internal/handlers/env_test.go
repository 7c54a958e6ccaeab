package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/arnold/productivityhub-api/internal/database"
	"github.com/arnold/productivityhub-api/internal/events"
	"github.com/arnold/productivityhub-api/internal/handlers"
	"github.com/arnold/productivityhub-api/internal/metrics"
	"github.com/arnold/productivityhub-api/internal/middleware"
	"github.com/arnold/productivityhub-api/internal/routes"
	"github.com/arnold/productivityhub-api/internal/store"
)

// testNow is the server clock in handler tests: 09:00 UTC on 2026-10-18.
var testNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	app     *fiber.App
	handler *handlers.Handler
	db      *gorm.DB
	habits  store.HabitStore
	hub     *events.Hub
	metrics *metrics.Metrics
	auth    *middleware.Auth
	uploads string
	now     time.Time
}

type envOption func(*testEnv)

func withHabitStore(s store.HabitStore) envOption {
	return func(e *testEnv) { e.habits = s }
}

// withGormHabits backs habits with the test database instead of memory.
func withGormHabits() envOption {
	return func(e *testEnv) { e.habits = store.NewGormHabitStore(e.db) }
}

func newEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(filepath.Join(dir, "test.db"), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = database.Close(db) })

	e := &testEnv{
		db:      db,
		habits:  store.NewMemoryHabitStore(),
		hub:     events.NewHub(nil),
		metrics: metrics.New(),
		auth:    middleware.NewAuth("test-secret"),
		uploads: filepath.Join(dir, "uploads"),
		now:     testNow,
	}
	for _, opt := range opts {
		opt(e)
	}

	h := handlers.New(handlers.Deps{
		DB:         db,
		Habits:     e.habits,
		Auth:       e.auth,
		Hub:        e.hub,
		Metrics:    e.metrics,
		Log:        zap.NewNop(),
		UploadsDir: e.uploads,
		MaxUpload:  1 << 20,
		Now:        func() time.Time { return e.now },
	})
	e.handler = h
	e.app = routes.NewApp(routes.Options{
		Handler:    h,
		Auth:       e.auth,
		Metrics:    e.metrics,
		Log:        zap.NewNop(),
		UploadsDir: e.uploads,
	})
	return e
}

// request sends a JSON request (body may be nil, a string of raw JSON, or a
// value to marshal) and returns the status and body.
func (e *testEnv) request(t *testing.T, method, path string, body interface{}, token string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func errorMessage(t *testing.T, data []byte) string {
	t.Helper()
	return decode[map[string]interface{}](t, data)["error"].(string)
}

// register creates an account and returns its token and user id.
func (e *testEnv) register(t *testing.T, email string) (token, userID string) {
	t.Helper()
	status, body := e.request(t, "POST", "/api/auth/register", map[string]string{
		"email": email, "password": "secret123", "name": "Test",
	}, "")
	require.Equal(t, fiber.StatusCreated, status, string(body))
	resp := decode[struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}](t, body)
	return resp.Token, resp.User.ID
}
