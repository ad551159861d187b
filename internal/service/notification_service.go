package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-od-api/internal/models"
	"github.com/noah-isme/campus-od-api/pkg/jobs"
	"github.com/noah-isme/campus-od-api/pkg/mailer"
)

const jobTypeStatusMail = "od.status_mail"

// NotificationService e-mails students when faculty decide on their requests.
// Delivery happens on a worker queue so reviews never wait on SMTP.
type NotificationService struct {
	sender  mailer.Sender
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService builds the service. A nil sender turns notifications off.
func NewNotificationService(sender mailer.Sender, metrics *MetricsService, logger *zap.Logger, queueCfg jobs.QueueConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{sender: sender, metrics: metrics, logger: logger}
	queueCfg.Logger = logger
	queueCfg.OnResult = s.observe
	s.queue = jobs.NewQueue("od-notifications", s.deliver, queueCfg)
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	if s.sender == nil {
		s.logger.Info("status notifications disabled")
		return
	}
	s.queue.Start(ctx)
}

// Stop waits for in-flight deliveries to finish.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// StatusChanged queues an e-mail for the request owner.
func (s *NotificationService) StatusChanged(_ context.Context, change models.ODStatusChange) {
	if s.sender == nil {
		s.metrics.NotificationResult("skipped")
		return
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      change.Request.ID,
		Type:    jobTypeStatusMail,
		Payload: change,
	})
	if err != nil {
		result := "failed"
		if errors.Is(err, jobs.ErrQueueFull) {
			result = "dropped"
		}
		s.metrics.NotificationResult(result)
		s.logger.Warn("status notification not queued", zap.String("od_id", change.Request.ID), zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	change, ok := job.Payload.(models.ODStatusChange)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	return s.sender.Send(ctx, statusMessage(change))
}

func (s *NotificationService) observe(job jobs.Job, err error) {
	if err != nil {
		s.metrics.NotificationResult("failed")
		return
	}
	s.metrics.NotificationResult("sent")
	s.logger.Debug("status notification sent", zap.String("od_id", job.ID))
}

func statusMessage(change models.ODStatusChange) mailer.Message {
	req := change.Request
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", req.Name)
	fmt.Fprintf(&b, "Your OD request for %q at %s, applied on %s, is now %s.\n",
		req.Reason, req.Venue, req.AppliedAt.Format("02 Jan 2006"), strings.ToUpper(string(req.Status)))
	if change.Previous != "" && change.Previous != models.ODStatusPending && change.Previous != req.Status {
		fmt.Fprintf(&b, "It was previously marked %s.\n", change.Previous)
	}
	b.WriteString("\nRoll no: " + req.RollNo + "\nRequest id: " + req.ID + "\n")

	return mailer.Message{
		To:      req.StudentEmail,
		Subject: fmt.Sprintf("OD request %s", req.Status),
		Body:    b.String(),
	}
}
