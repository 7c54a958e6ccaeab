package services

import (
	"context"
	"errors"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"gorm.io/gorm"

	"github.com/arnold/productivityhub-api/internal/models"
)

// Pusher delivers a push notification to an owner's registered device.
type Pusher interface {
	SendToUser(ctx context.Context, ownerID, title, body string, data map[string]string) error
}

// PushService sends push notifications via Firebase Cloud Messaging.
type PushService struct {
	client *messaging.Client
	db     *gorm.DB
	log    *zap.Logger
}

// NewPushService connects to FCM. Without a service account, or when Firebase
// cannot be initialised, the service is returned disabled and every send is a no-op.
func NewPushService(ctx context.Context, serviceAccountPath string, db *gorm.DB, log *zap.Logger) *PushService {
	if log == nil {
		log = zap.NewNop()
	}
	p := &PushService{db: db, log: log.Named("push")}
	if serviceAccountPath == "" {
		p.log.Info("no service account configured, push notifications disabled")
		return p
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		p.log.Warn("failed to initialise firebase app", zap.Error(err))
		return p
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		p.log.Warn("failed to get messaging client", zap.Error(err))
		return p
	}

	p.client = client
	p.log.Info("push notifications enabled")
	return p
}

func (p *PushService) Enabled() bool {
	return p != nil && p.client != nil
}

// SendToUser pushes to the owner's device token. Guest and free-form owners
// have no account, and accounts without a token are skipped silently.
func (p *PushService) SendToUser(ctx context.Context, ownerID, title, body string, data map[string]string) error {
	if !p.Enabled() {
		return nil
	}
	userID, err := uuid.Parse(ownerID)
	if err != nil {
		return nil
	}

	var user models.User
	if err := p.db.WithContext(ctx).Select("fcm_token").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if user.FCMToken == "" {
		return nil
	}

	msg := &messaging.Message{
		Token: user.FCMToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}
	if _, err := p.client.Send(ctx, msg); err != nil {
		p.log.Warn("send failed", zap.String("user_id", ownerID), zap.Error(err))
		return err
	}
	return nil
}
