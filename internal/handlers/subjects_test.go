package handlers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnold/productivityhub-api/internal/models"
)

func TestSubjectsRequireAuth(t *testing.T) {
	e := newEnv(t)
	status, _ := e.request(t, "GET", "/api/subjects", nil, "")
	assert.Equal(t, 401, status)
	status, _ = e.request(t, "POST", "/api/subjects", map[string]interface{}{"name": "Math", "category": "STEM"}, "")
	assert.Equal(t, 401, status)
}

func TestSubjectLifecycle(t *testing.T) {
	e := newEnv(t)
	token, userID := e.register(t, "subjects@example.com")
	other, _ := e.register(t, "someone@example.com")

	status, data := e.request(t, "POST", "/api/subjects", map[string]interface{}{"name": "Math", "category": "STEM"}, token)
	require.Equal(t, 201, status, string(data))
	math := decode[models.Subject](t, data)
	assert.Equal(t, models.DefaultRating, math.Rating)
	assert.Equal(t, userID, math.UserID.String())

	status, data = e.request(t, "POST", "/api/subjects", map[string]interface{}{"name": "Art", "category": "Humanities", "rating": 9}, token)
	require.Equal(t, 201, status)
	assert.Equal(t, 5, decode[models.Subject](t, data).Rating)

	status, _ = e.request(t, "POST", "/api/subjects", map[string]interface{}{"name": "Art"}, token)
	assert.Equal(t, 400, status)

	status, data = e.request(t, "PUT", "/api/subjects/"+math.ID.String(), map[string]interface{}{"rating": -2, "comment": "hard"}, token)
	require.Equal(t, 200, status, string(data))
	updated := decode[models.Subject](t, data)
	assert.Equal(t, 1, updated.Rating)
	assert.Equal(t, "hard", updated.Comment)
	assert.Equal(t, "Math", updated.Name)

	status, _ = e.request(t, "PUT", "/api/subjects/"+math.ID.String(), map[string]interface{}{"rating": 4}, other)
	assert.Equal(t, 404, status)

	status, data = e.request(t, "GET", "/api/subjects", nil, token)
	require.Equal(t, 200, status)
	assert.Len(t, decode[[]models.Subject](t, data), 2)

	status, data = e.request(t, "GET", "/api/subjects", nil, other)
	require.Equal(t, 200, status)
	assert.Empty(t, decode[[]models.Subject](t, data))

	status, _ = e.request(t, "DELETE", "/api/subjects/"+math.ID.String(), nil, other)
	assert.Equal(t, 404, status)
	status, _ = e.request(t, "DELETE", "/api/subjects/"+math.ID.String(), nil, token)
	assert.Equal(t, 200, status)
	status, _ = e.request(t, "DELETE", "/api/subjects/"+math.ID.String(), nil, token)
	assert.Equal(t, 404, status)
}
