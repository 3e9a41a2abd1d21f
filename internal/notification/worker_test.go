package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

const (
	alertQuery        = `SELECT \* FROM "alerts" WHERE id = \$1 ORDER BY "alerts"."id" LIMIT \$[0-9]+`
	subscriptionQuery = `SELECT .* FROM "push_subscriptions".*JOIN subscription_panchayat_mapping spm.*WHERE spm\.panchayat_id = \$1`
)

func expectAlert(mock sqlmock.Sqlmock, alertID string, panchayatID any) {
	mock.ExpectQuery(alertQuery).
		WithArgs(alertID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "panchayat_id", "alert_type", "severity", "status", "message", "description"}).
			AddRow(alertID, panchayatID, "session_anomaly", "low", "open", "Session auto-closed for machine HR-1", "Duration: 42 minutes"))
}

func expectSubscriptions(mock sqlmock.Sqlmock, panchayatID string, endpoints ...string) {
	rows := sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "created_at"})
	for _, e := range endpoints {
		rows.AddRow(e, "test_p256dh", "test_auth", time.Now())
	}
	mock.ExpectQuery(subscriptionQuery).WithArgs(panchayatID).WillReturnRows(rows)
}

func TestWorkerPool_Dispatch(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(1, db, &webpush.Options{}, zap.NewNop())

	wp.Dispatch("alert-1")

	select {
	case job := <-wp.jobs:
		assert.Equal(t, "alert-1", job)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_DispatchDropsWhenFull(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(1, db, &webpush.Options{}, zap.NewNop())

	for i := 0; i < queueFactor+5; i++ {
		wp.Dispatch(fmt.Sprintf("alert-%d", i))
	}
	assert.Len(t, wp.jobs, queueFactor)
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	gormDB, mock := newTestDB(t)
	wp := NewWorkerPool(1, gormDB, &webpush.Options{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	t.Run("sends notification to panchayat subscribers", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(2)

		var mu sync.Mutex
		var endpoints []string
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				var p Payload
				assert.NoError(t, json.Unmarshal(payload, &p))
				assert.Equal(t, "a-101", p.AlertID)
				assert.Equal(t, "Session auto-closed for machine HR-1", p.Title)
				assert.Equal(t, "low", p.Severity)
				mu.Lock()
				endpoints = append(endpoints, sub.Endpoint)
				mu.Unlock()
				wg.Done()
				return response(http.StatusCreated), nil
			},
		}

		expectAlert(mock, "a-101", "p1")
		expectSubscriptions(mock, "p1", "https://example.com/push/1", "https://example.com/push/2")

		wp.Dispatch("a-101")
		wg.Wait()
		assert.ElementsMatch(t, []string{"https://example.com/push/1", "https://example.com/push/2"}, endpoints)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return response(http.StatusGone), nil
			},
		}

		expectAlert(mock, "a-102", "p1")
		expectSubscriptions(mock, "p1", "https://example.com/expired")
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "push_subscriptions" WHERE "push_subscriptions"."endpoint" = \$1`).
			WithArgs("https://example.com/expired").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		wp.Dispatch("a-102")

		assert.Eventually(t, func() bool {
			return mock.ExpectationsWereMet() == nil
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("skips alerts without panchayat", func(t *testing.T) {
		sent := make(chan struct{}, 1)
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				sent <- struct{}{}
				return response(http.StatusCreated), nil
			},
		}

		expectAlert(mock, "a-103", nil)

		wp.Dispatch("a-103")

		assert.Eventually(t, func() bool {
			return mock.ExpectationsWereMet() == nil
		}, time.Second, 10*time.Millisecond)
		select {
		case <-sent:
			t.Fatal("notification sent for alert without panchayat")
		case <-time.After(50 * time.Millisecond):
		}
	})
}
