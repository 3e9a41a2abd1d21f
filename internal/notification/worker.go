// Package notification pushes alerts to browsers subscribed to a panchayat.
package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"farmtrack-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Payload is the JSON body delivered to the browser.
type Payload struct {
	AlertID  string `json:"alert_id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Severity string `json:"severity"`
}

// WorkerPool manages a pool of workers for sending alert notifications.
type WorkerPool struct {
	size    int
	jobs    chan string
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
	logger  *zap.Logger
}

// NewWorkerPool creates a new worker pool. The job queue holds queueFactor jobs per worker.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, logger *zap.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan string, size*queueFactor),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logger,
	}
}

const queueFactor = 16

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Debug("Notification worker started", zap.Int("worker", id))
	for {
		select {
		case alertID := <-wp.jobs:
			wp.sendNotificationsForAlert(ctx, alertID)
		case <-ctx.Done():
			wp.logger.Debug("Notification worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues an alert for delivery. It never blocks ingestion: when the queue is full
// the job is dropped.
func (wp *WorkerPool) Dispatch(alertID string) {
	select {
	case wp.jobs <- alertID:
	default:
		wp.logger.Warn("Notification queue full, dropping alert", zap.String("alert_id", alertID))
	}
}

// sendNotificationsForAlert delivers an alert to every subscription of its panchayat.
func (wp *WorkerPool) sendNotificationsForAlert(ctx context.Context, alertID string) {
	var alert model.Alert
	if err := wp.db.WithContext(ctx).First(&alert, "id = ?", alertID).Error; err != nil {
		wp.logger.Error("Failed to load alert", zap.String("alert_id", alertID), zap.Error(err))
		return
	}
	if alert.PanchayatID == nil || *alert.PanchayatID == "" {
		return
	}

	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_panchayat_mapping spm ON spm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("spm.panchayat_id = ?", *alert.PanchayatID).
		Find(&subscriptions).Error
	if err != nil {
		wp.logger.Error("Failed to fetch subscriptions", zap.String("panchayat_id", *alert.PanchayatID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(Payload{
		AlertID:  alert.ID,
		Title:    alert.Message,
		Body:     alert.Description,
		Severity: alert.Severity,
	})
	if err != nil {
		wp.logger.Error("Failed to encode notification", zap.String("alert_id", alertID), zap.Error(err))
		return
	}

	wp.logger.Info("Sending alert notifications",
		zap.String("alert_id", alertID),
		zap.Int("subscriptions", len(subscriptions)))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.Warn("Failed to send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		wp.logger.Info("Subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			wp.logger.Error("Failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
