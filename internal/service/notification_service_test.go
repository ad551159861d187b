package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-od-api/internal/models"
	"github.com/noah-isme/campus-od-api/pkg/jobs"
	"github.com/noah-isme/campus-od-api/pkg/mailer"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []mailer.Message
	fails int
	done  chan struct{}
}

func (r *recordingSender) Send(_ context.Context, msg mailer.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fails > 0 {
		r.fails--
		return errors.New("relay unavailable")
	}
	r.sent = append(r.sent, msg)
	if r.done != nil {
		close(r.done)
		r.done = nil
	}
	return nil
}

func sampleChange(status models.ODStatus, previous models.ODStatus) models.ODStatusChange {
	return models.ODStatusChange{
		Request: models.ODRequest{
			ID:           "od-1",
			StudentEmail: "asha.cse2024@citchennai.net",
			Name:         "Asha",
			RollNo:       "21CS001",
			Reason:       "Hackathon",
			Venue:        "IIT Madras",
			Status:       status,
			AppliedAt:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		},
		Previous:   previous,
		ReviewerID: "fac-1",
	}
}

func TestNotificationServiceDeliversAfterRetry(t *testing.T) {
	done := make(chan struct{})
	sender := &recordingSender{fails: 1, done: done}
	svc := NewNotificationService(sender, NewMetricsService(), nil, jobs.QueueConfig{MaxRetries: 2, RetryDelay: time.Millisecond})
	svc.Start(context.Background())
	defer svc.Stop()

	svc.StatusChanged(context.Background(), sampleChange(models.ODStatusApproved, models.ODStatusPending))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
	}
	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "asha.cse2024@citchennai.net", sender.sent[0].To)
	assert.Equal(t, "OD request approved", sender.sent[0].Subject)
}

func TestNotificationServiceDisabled(t *testing.T) {
	svc := NewNotificationService(nil, nil, nil, jobs.QueueConfig{})
	svc.Start(context.Background())
	svc.StatusChanged(context.Background(), sampleChange(models.ODStatusRejected, models.ODStatusPending))
	svc.Stop()
}

func TestStatusMessage(t *testing.T) {
	msg := statusMessage(sampleChange(models.ODStatusRejected, models.ODStatusApproved))
	assert.Equal(t, "OD request rejected", msg.Subject)
	assert.Contains(t, msg.Body, "Hello Asha")
	assert.Contains(t, msg.Body, `"Hackathon" at IIT Madras, applied on 01 Mar 2024, is now REJECTED`)
	assert.Contains(t, msg.Body, "previously marked approved")

	msg = statusMessage(sampleChange(models.ODStatusApproved, models.ODStatusPending))
	assert.NotContains(t, msg.Body, "previously")
}
