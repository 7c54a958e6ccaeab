package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/arnold/productivityhub-api/internal/models"
)

const NotificationSessionReminder = "session_reminder"

// Notifier stores in-app notifications and mirrors them as push messages.
type Notifier struct {
	db   *gorm.DB
	push Pusher
	log  *zap.Logger
}

func NewNotifier(db *gorm.DB, push Pusher, log *zap.Logger) *Notifier {
	return &Notifier{db: db, push: push, log: log}
}

// Notify records a notification for ownerID. The push is best effort: a
// failed push is logged and does not fail the call.
func (n *Notifier) Notify(ctx context.Context, ownerID, kind, title, body string, metadata map[string]interface{}) (models.Notification, error) {
	notif := models.Notification{
		UserID: ownerID,
		Type:   kind,
		Title:  title,
		Body:   body,
	}

	var pushData map[string]string
	if metadata != nil {
		if data, err := json.Marshal(metadata); err == nil {
			s := string(data)
			notif.Metadata = &s
		}
		pushData = make(map[string]string, len(metadata)+1)
		for k, v := range metadata {
			pushData[k] = fmt.Sprintf("%v", v)
		}
		pushData["type"] = kind
	}

	if err := n.db.WithContext(ctx).Create(&notif).Error; err != nil {
		return models.Notification{}, fmt.Errorf("create notification: %w", err)
	}

	if n.push != nil {
		if err := n.push.SendToUser(ctx, ownerID, title, body, pushData); err != nil {
			n.log.Warn("push failed", zap.String("user_id", ownerID), zap.String("type", kind), zap.Error(err))
		}
	}
	return notif, nil
}
