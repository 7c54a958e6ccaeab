package handlers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnold/productivityhub-api/internal/database"
)

func TestHealth(t *testing.T) {
	e := newEnv(t)
	sub := e.hub.Subscribe("guest")
	defer e.hub.Unsubscribe(sub)

	status, data := e.request(t, "GET", "/health", nil, "")
	require.Equal(t, 200, status, string(data))
	body := decode[map[string]interface{}](t, data)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, 1.0, body["subscribers"])

	require.NoError(t, database.Close(e.db))
	status, data = e.request(t, "GET", "/health", nil, "")
	assert.Equal(t, 503, status)
	assert.Equal(t, "degraded", decode[map[string]interface{}](t, data)["status"])
}
