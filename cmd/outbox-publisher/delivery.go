package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/enums"
	"github.com/dealerworks/dms-backend/pkg/outbox/registry"
)

type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeDeadLetter
)

// delivery is what happened to one row. It is settled against the batch
// transaction by settle.
type delivery struct {
	outcome  outcome
	reason   enums.OutboxDLQErrorReason
	err      error
	eventID  string
	topic    string
	stream   string
	attempts int
}

func (s *Service) deliver(ctx context.Context, row models.OutboxEvent) delivery {
	result := delivery{attempts: row.AttemptCount}

	resolved, err := s.registry.Resolve(row)
	if err != nil {
		result.outcome = outcomeDeadLetter
		result.reason = enums.OutboxDLQReasonNonRetryable
		if errors.Is(err, registry.ErrUnroutable) {
			result.reason = enums.OutboxDLQReasonUnroutable
		}
		result.err = err
		return result
	}
	result.eventID = resolved.Envelope.EventID
	result.topic = resolved.Descriptor.Topic
	result.stream = s.streams[result.topic]

	err = s.publish(ctx, row, resolved, result.stream)
	var nonRetry registry.NonRetryableError
	switch {
	case err == nil:
		result.outcome = outcomePublished
	case errors.As(err, &nonRetry):
		result.outcome = outcomeDeadLetter
		result.reason = enums.OutboxDLQReasonNonRetryable
		result.err = err
	case row.AttemptCount+1 >= s.maxAttempts:
		result.outcome = outcomeDeadLetter
		result.reason = enums.OutboxDLQReasonMaxAttempts
		result.err = fmt.Errorf("max publish attempts reached: %w", err)
		result.attempts = row.AttemptCount + 1
	default:
		result.outcome = outcomeRetry
		result.err = err
		result.attempts = row.AttemptCount + 1
	}
	return result
}

func (s *Service) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent, stream string) error {
	topic := resolved.Descriptor.Topic
	pub := s.publisherFactory(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, buildMessage(row, resolved, stream))
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(publishCtx)
	return err
}

func (s *Service) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, result delivery) error {
	logCtx := s.logg.WithFields(ctx, s.rowFields(row, result))
	eventType := string(row.EventType)

	switch result.outcome {
	case outcomePublished:
		if err := s.repo.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		if s.metrics != nil {
			s.metrics.IncPublished(eventType)
		}
		s.logg.Debug(logCtx, "outbox event published")
	case outcomeRetry:
		s.logg.Warn(s.logg.WithField(logCtx, "error", result.err.Error()), "outbox publish failed")
		if s.metrics != nil {
			s.metrics.IncRetry(eventType)
		}
		if err := s.repo.MarkFailedTx(tx, row.ID, result.err); err != nil {
			return fmt.Errorf("mark failure %s: %w", row.ID, err)
		}
	default:
		s.logg.Warn(s.logg.WithField(logCtx, "error", result.err.Error()), "outbox event will not be retried")
		if err := s.deadLetter(tx, row, result); err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.IncDeadLetter(eventType, string(result.reason))
		}
	}
	return nil
}

func (s *Service) deadLetter(tx *gorm.DB, row models.OutboxEvent, result delivery) error {
	msg := result.err.Error()
	entry := models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   result.reason,
		ErrorMessage:  &msg,
		AttemptCount:  row.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", row.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, row.ID, result.err, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	return nil
}

func (s *Service) rowFields(row models.OutboxEvent, result delivery) map[string]any {
	fields := map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
		"attempt_count":  result.attempts,
	}
	if result.eventID != "" {
		fields["event_id"] = result.eventID
	}
	if result.topic != "" {
		fields["topic"] = result.topic
	}
	if result.stream != "" {
		fields["stream"] = result.stream
	}
	if result.reason != "" {
		fields["error_reason"] = result.reason
	}
	return fields
}
