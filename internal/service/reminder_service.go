package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-ekskul-api/internal/models"
	"github.com/noah-isme/sma-ekskul-api/pkg/jobs"
)

type duePaymentLister interface {
	ListDueSoon(ctx context.Context, cutoff time.Time) ([]models.PaymentDetail, error)
}

type reminderNotifier interface {
	Create(ctx context.Context, n *models.Notification) error
	ExistsReminder(ctx context.Context, userID, paymentID string) (bool, error)
}

// ReminderConfig tunes the payment reminder sweep.
type ReminderConfig struct {
	Interval time.Duration
	Workers  int
	DueSoon  time.Duration
}

// ReminderService periodically finds pending payments near their due date and
// pushes reminder notifications through a background queue. Reminders are
// idempotent per payment.
type ReminderService struct {
	payments      duePaymentLister
	notifications reminderNotifier
	metrics       *MetricsService
	logger        *zap.Logger
	config        ReminderConfig

	queue  *jobs.Queue
	cancel context.CancelFunc
}

// NewReminderService constructs ReminderService.
func NewReminderService(payments duePaymentLister, notifications reminderNotifier, metrics *MetricsService, logger *zap.Logger, config ReminderConfig) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.DueSoon <= 0 {
		config.DueSoon = 48 * time.Hour
	}

	s := &ReminderService{
		payments:      payments,
		notifications: notifications,
		metrics:       metrics,
		logger:        logger,
		config:        config,
	}
	s.queue = jobs.NewQueue("payment-reminders", s.handle, jobs.QueueConfig{
		Workers: config.Workers,
		Logger:  logger,
	})
	return s
}

// Start launches the queue workers and the periodic sweep.
func (s *ReminderService) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.queue.Start(ctx)

	go func() {
		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
	s.logger.Info("payment reminder sweep started", zap.Duration("interval", s.config.Interval))
}

// Stop cancels the sweep and drains the queue workers.
func (s *ReminderService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.queue.Stop()
}

// Sweep enqueues one reminder job per pending payment close to its due date.
func (s *ReminderService) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(s.config.DueSoon)
	due, err := s.payments.ListDueSoon(ctx, cutoff)
	if err != nil {
		s.logger.Error("reminder sweep failed to list due payments", zap.Error(err))
		return
	}
	for _, payment := range due {
		job := jobs.Job{
			ID:      payment.ID,
			Type:    "payment_reminder",
			Payload: payment,
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue reminder", zap.String("payment_id", payment.ID), zap.Error(err))
		}
	}
	if len(due) > 0 {
		s.logger.Info("reminder sweep enqueued payments", zap.Int("count", len(due)))
	}
}

func (s *ReminderService) handle(ctx context.Context, job jobs.Job) error {
	payment, ok := job.Payload.(models.PaymentDetail)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}

	exists, err := s.notifications.ExistsReminder(ctx, payment.StudentID, payment.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	dueText := "soon"
	if payment.DueDate != nil {
		dueText = payment.DueDate.Format("2 Jan 2006")
	}
	notification := &models.Notification{
		UserID:    payment.StudentID,
		Title:     "Payment Reminder",
		Message:   fmt.Sprintf("Your payment of %.2f for %s is due %s.", payment.Amount, payment.ActivityName, dueText),
		Type:      models.NotificationTypeReminder,
		RelatedID: &payment.ID,
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		return err
	}

	s.metrics.RecordReminderSent()
	return nil
}
