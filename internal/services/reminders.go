package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/arnold/productivityhub-api/internal/events"
	"github.com/arnold/productivityhub-api/internal/metrics"
	"github.com/arnold/productivityhub-api/internal/models"
)

// maxReminderLead bounds the query window; no reminder option fires earlier.
const maxReminderLead = time.Hour

// ReminderWorker notifies owners shortly before their study sessions start.
type ReminderWorker struct {
	db       *gorm.DB
	notifier *Notifier
	hub      *events.Hub
	metrics  *metrics.Metrics
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time
}

func NewReminderWorker(db *gorm.DB, notifier *Notifier, hub *events.Hub, m *metrics.Metrics, log *zap.Logger, interval time.Duration) *ReminderWorker {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReminderWorker{
		db:       db,
		notifier: notifier,
		hub:      hub,
		metrics:  m,
		log:      log.Named("reminders"),
		interval: interval,
		now:      time.Now,
	}
}

// Run checks for due reminders every interval until ctx is cancelled.
func (w *ReminderWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("reminder worker started", zap.Duration("interval", w.interval))
	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.log.Error("reminder pass failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			w.log.Info("reminder worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce sends every reminder due now: the session is not completed, not yet
// reminded, and now lies in [startTime-offset, startTime). It returns how many
// reminders were sent.
func (w *ReminderWorker) RunOnce(ctx context.Context) (int, error) {
	// start times are stored in UTC; sqlite compares them as text
	now := w.now().UTC().Truncate(time.Second)

	var candidates []models.StudySession
	err := w.db.WithContext(ctx).
		Where("completed = ? AND reminded = ? AND reminder <> ?", false, false, "none").
		Where("start_time > ? AND start_time <= ?", now, now.Add(maxReminderLead)).
		Order("start_time ASC").
		Find(&candidates).Error
	if err != nil {
		return 0, fmt.Errorf("query due sessions: %w", err)
	}

	sent := 0
	for i := range candidates {
		session := &candidates[i]
		at, ok := session.ReminderAt()
		if !ok || now.Before(at) {
			continue
		}

		// claim the session first so concurrent workers never double-send
		claim := w.db.WithContext(ctx).Model(&models.StudySession{}).
			Where("id = ? AND reminded = ?", session.ID, false).
			Update("reminded", true)
		if claim.Error != nil {
			return sent, fmt.Errorf("mark session %s reminded: %w", session.ID, claim.Error)
		}
		if claim.RowsAffected == 0 {
			continue
		}
		session.Reminded = true

		if err := w.remind(ctx, session, now); err != nil {
			w.log.Error("send reminder", zap.String("session_id", session.ID.String()), zap.Error(err))
			w.release(ctx, session)
			continue
		}
		sent++
	}
	if sent > 0 {
		w.log.Info("reminders sent", zap.Int("count", sent))
	}
	return sent, nil
}

// release clears the claim on a session whose reminder was not recorded, so a
// later pass retries it while it is still inside its window.
func (w *ReminderWorker) release(ctx context.Context, session *models.StudySession) {
	err := w.db.WithContext(context.WithoutCancel(ctx)).Model(&models.StudySession{}).
		Where("id = ?", session.ID).
		Update("reminded", false).Error
	if err != nil {
		w.log.Error("release reminder claim", zap.String("session_id", session.ID.String()), zap.Error(err))
		return
	}
	session.Reminded = false
}

func (w *ReminderWorker) remind(ctx context.Context, session *models.StudySession, now time.Time) error {
	minutes := int(session.StartTime.Sub(now).Round(time.Minute) / time.Minute)
	body := fmt.Sprintf("%q starts in %d min", session.Title, minutes)
	if minutes <= 0 {
		body = fmt.Sprintf("%q is starting now", session.Title)
	}

	_, err := w.notifier.Notify(ctx, session.UserID, NotificationSessionReminder, "Study session reminder", body,
		map[string]interface{}{"sessionId": session.ID.String()})
	if err != nil {
		return err
	}

	w.hub.Publish(session.UserID, events.Event{Type: events.SessionReminder, Session: session})
	if w.metrics != nil {
		w.metrics.RemindersSent.Inc()
	}
	return nil
}
