package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(auth *Auth, guard fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/whoami", guard, func(c *fiber.Ctx) error {
		return c.SendString(OwnerID(c, c.Query("userId")))
	})
	return app
}

func call(t *testing.T, app *fiber.App, target, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestTokenRoundTrip(t *testing.T) {
	auth := NewAuth("secret")
	userID := uuid.New()

	token, err := auth.GenerateToken(userID, "a@example.com")
	require.NoError(t, err)

	claims, err := auth.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestParseTokenRejects(t *testing.T) {
	auth := NewAuth("secret")
	token, err := auth.GenerateToken(uuid.New(), "a@example.com")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewAuth("other").ParseToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewAuth("secret")
		later.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
		_, err := later.ParseToken(token)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := auth.ParseToken("not.a.token")
		assert.Error(t, err)
	})
}

func TestProtected(t *testing.T) {
	auth := NewAuth("secret")
	app := newTestApp(auth, auth.Protected())
	userID := uuid.New()
	token, err := auth.GenerateToken(userID, "a@example.com")
	require.NoError(t, err)

	status, _ := call(t, app, "/whoami", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = call(t, app, "/whoami", token)
	assert.Equal(t, fiber.StatusUnauthorized, status, "missing Bearer prefix")

	status, _ = call(t, app, "/whoami", "Bearer nope")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body := call(t, app, "/whoami", "Bearer "+token)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, userID.String(), body)
}

func TestIdentify(t *testing.T) {
	auth := NewAuth("secret")
	app := newTestApp(auth, auth.Identify())
	userID := uuid.New()
	token, err := auth.GenerateToken(userID, "a@example.com")
	require.NoError(t, err)

	status, body := call(t, app, "/whoami", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "guest", body)

	status, body = call(t, app, "/whoami?userId=alice", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alice", body)

	status, body = call(t, app, "/whoami?userId=alice", "Bearer "+token)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, userID.String(), body, "authenticated identity wins over the query")

	status, _ = call(t, app, "/whoami", "Bearer broken")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}
