package handlers_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/arnold/productivityhub-api/internal/models"
)

type notificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	Total         int64                 `json:"total"`
	Unread        int64                 `json:"unread"`
	Page          int                   `json:"page"`
	Limit         int                   `json:"limit"`
}

func TestNotifications(t *testing.T) {
	e := newEnv(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, e.db.Create(&models.Notification{UserID: "guest", Type: "session_reminder", Title: "Reminder"}).Error)
	}
	require.NoError(t, e.db.Create(&models.Notification{UserID: "someone", Type: "session_reminder", Title: "Other"}).Error)

	status, data := e.request(t, "GET", "/api/notifications?limit=2", nil, "")
	require.Equal(t, 200, status, string(data))
	page := decode[notificationPage](t, data)
	assert.Len(t, page.Notifications, 2)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, int64(3), page.Unread)
	assert.Equal(t, 2, page.Limit)

	id := page.Notifications[0].ID.String()
	status, _ = e.request(t, "PUT", "/api/notifications/"+id+"/read", nil, "")
	assert.Equal(t, 200, status)
	status, _ = e.request(t, "PUT", "/api/notifications/"+id+"/read?userId=someone", nil, "")
	assert.Equal(t, 404, status)
	status, _ = e.request(t, "PUT", "/api/notifications/bad-id/read", nil, "")
	assert.Equal(t, 400, status)

	_, data = e.request(t, "GET", "/api/notifications", nil, "")
	assert.Equal(t, int64(2), decode[notificationPage](t, data).Unread)

	status, data = e.request(t, "POST", "/api/notifications/read-all", nil, "")
	require.Equal(t, 200, status)
	assert.Equal(t, 2.0, decode[map[string]interface{}](t, data)["updated"])

	_, data = e.request(t, "GET", "/api/notifications?userId=someone", nil, "")
	assert.Equal(t, int64(1), decode[notificationPage](t, data).Unread)
}

func TestRegisterDeviceToken(t *testing.T) {
	e := newEnv(t)
	token, userID := e.register(t, "push@example.com")

	status, _ := e.request(t, "POST", "/api/device-token", map[string]string{"token": "fcm-123"}, "")
	assert.Equal(t, 401, status)
	status, _ = e.request(t, "POST", "/api/device-token", map[string]string{}, token)
	assert.Equal(t, 400, status)
	status, _ = e.request(t, "POST", "/api/device-token", map[string]string{"token": "fcm-123"}, token)
	require.Equal(t, 200, status)

	var user models.User
	require.NoError(t, e.db.First(&user, "id = ?", userID).Error)
	assert.Equal(t, "fcm-123", user.FCMToken)
}

// failCounts makes every COUNT query on db fail.
func failCounts(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("test:fail_count", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*int64); ok {
			_ = tx.AddError(errors.New("count unavailable"))
		}
	}))
}

func TestCountFailuresAreNotReportedAsZero(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register(t, "counts@example.com")
	require.NoError(t, e.db.Create(&models.Notification{UserID: "guest", Type: "session_reminder", Title: "Reminder"}).Error)
	failCounts(t, e.db)

	status, data := e.request(t, "GET", "/api/notifications", nil, "")
	assert.Equal(t, 500, status, string(data))
	assert.Equal(t, "Failed to fetch notifications", errorMessage(t, data))

	status, data = e.request(t, "GET", "/api/me", nil, token)
	assert.Equal(t, 500, status, string(data))
}
