package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/practice-api/internal/email"
	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/messaging"
	"github.com/jwalitptl/practice-api/pkg/metrics"
)

// ChannelEvents receives events of a type without a dedicated channel.
const ChannelEvents = "practice.events"

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration

	// Lease is how long a claimed event stays invisible to other workers.
	Lease           time.Duration
	Retention       time.Duration
	CleanupInterval time.Duration
}

// OutboxProcessor delivers outbox events: every event is published on the
// broker and email-channel notifications are also mailed. Delivery is at
// least once; an event is retried with backoff until RetryAttempts is spent.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	mailer  email.Service
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

var errPermanent = errors.New("permanent failure")

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	mailer email.Service,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) (*OutboxProcessor, error) {
	if config.BatchSize <= 0 {
		return nil, errors.New("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		return nil, errors.New("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		return nil, errors.New("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		return nil, errors.New("RetryDelay must be greater than 0")
	}
	if config.Lease <= 0 {
		config.Lease = time.Minute
	}
	if config.Retention <= 0 {
		config.Retention = 7 * 24 * time.Hour
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Hour
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		mailer:  mailer,
		config:  config,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}, nil
}

// Start polls until ctx is done.
func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()
	cleanup := time.NewTicker(p.config.CleanupInterval)
	defer cleanup.Stop()

	p.logger.Info("Starting outbox processor", "batch_size", p.config.BatchSize)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		case <-cleanup.C:
			if _, err := p.Cleanup(ctx); err != nil {
				p.logger.Error(err, "Failed to clean up processed events")
			}
		}
	}
}

// ProcessBatch claims and handles one batch, returning how many were claimed.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.Claim(ctx, p.config.BatchSize, p.config.Lease)
	if err != nil {
		return 0, fmt.Errorf("failed to claim events: %w", err)
	}

	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "Failed to process event",
				"event_id", event.ID.String(),
				"event_type", event.EventType)
		}
	}
	return len(events), nil
}

// Cleanup deletes processed events older than the retention window.
func (p *OutboxProcessor) Cleanup(ctx context.Context) (int64, error) {
	n, err := p.repo.DeleteProcessedBefore(ctx, p.now().Add(-p.config.Retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		p.logger.Info("Deleted processed outbox events", "count", n)
	}
	return n, nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	err := p.dispatch(ctx, event)
	if err == nil {
		p.metrics.OutboxEventsProcessed.Inc()
		return p.repo.MarkProcessed(ctx, event.ID)
	}

	attempt := event.RetryCount + 1
	if errors.Is(err, errPermanent) || attempt >= p.config.RetryAttempts {
		p.metrics.OutboxEventsFailed.Inc()
		if markErr := p.repo.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
			p.logger.Error(markErr, "Failed to update event status", "event_id", event.ID.String())
		}
		return err
	}

	p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
	retryAt := p.now().Add(p.backoff(event.RetryCount))
	if markErr := p.repo.MarkRetry(ctx, event.ID, err.Error(), retryAt); markErr != nil {
		p.logger.Error(markErr, "Failed to update event status", "event_id", event.ID.String())
	}
	return err
}

// backoff doubles the delay per previous attempt, capped at 64x.
func (p *OutboxProcessor) backoff(retries int) time.Duration {
	if retries > 6 {
		retries = 6
	}
	return p.config.RetryDelay << retries
}

func (p *OutboxProcessor) dispatch(ctx context.Context, event *model.OutboxEvent) error {
	switch event.EventType {
	case model.EventNotificationCreated:
		var n model.NotificationDispatch
		if err := json.Unmarshal(event.Payload, &n); err != nil {
			return fmt.Errorf("%w: bad notification payload: %v", errPermanent, err)
		}
		return p.deliverNotification(ctx, event, &n)

	case model.EventAppointmentCreated, model.EventAppointmentUpdated, model.EventAppointmentCanceled:
		var change model.AppointmentChange
		if err := json.Unmarshal(event.Payload, &change); err != nil {
			return fmt.Errorf("%w: bad appointment payload: %v", errPermanent, err)
		}
		channel := messaging.UserChannel(messaging.ChannelAppointments, change.DoctorID.String())
		return p.broker.Publish(ctx, channel, messaging.Message{Type: event.EventType, Payload: change.Appointment})

	default:
		return p.broker.Publish(ctx, ChannelEvents, messaging.Message{Type: event.EventType, Payload: event.Payload})
	}
}

func (p *OutboxProcessor) deliverNotification(ctx context.Context, event *model.OutboxEvent, n *model.NotificationDispatch) error {
	channel := messaging.UserChannel(messaging.ChannelNotifications, n.UserID.String())
	err := p.broker.Publish(ctx, channel, messaging.Message{Type: event.EventType, Payload: n})
	p.metrics.NotificationsDelivered.WithLabelValues(string(model.NotificationChannelInApp), metrics.Status(err)).Inc()
	if err != nil {
		return err
	}

	if n.Channel != model.NotificationChannelEmail {
		return nil
	}
	if n.Email == "" {
		return fmt.Errorf("%w: email notification %s has no recipient", errPermanent, n.NotificationID)
	}
	err = p.mailer.SendNotification(ctx, n.Email, n.Title, n.Message)
	p.metrics.NotificationsDelivered.WithLabelValues(string(model.NotificationChannelEmail), metrics.Status(err)).Inc()
	return err
}
