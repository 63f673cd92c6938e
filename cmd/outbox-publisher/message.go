package main

import (
	"context"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/outbox/registry"
)

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// orderingKey scopes ordering to one aggregate, for example
// "loyalty_account:<id>". Redemptions and their accounts order separately.
func orderingKey(row models.OutboxEvent) string {
	return string(row.AggregateType) + ":" + row.AggregateID.String()
}

func buildMessage(row models.OutboxEvent, resolved *registry.ResolvedEvent, stream string) *gcppubsub.Message {
	attrs := map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID.String(),
		"created_at":     row.CreatedAt.Format(time.RFC3339Nano),
	}
	if stream != "" {
		attrs["stream"] = stream
	}
	if row.DedupeKey != nil && *row.DedupeKey != "" {
		attrs["dedupe_key"] = *row.DedupeKey
	}
	return &gcppubsub.Message{
		Data:        row.Payload,
		Attributes:  attrs,
		OrderingKey: orderingKey(row),
	}
}

func gcpPublisherFactory(client pubSubClient) publisherFactory {
	return func(topic string) publisher {
		p := client.Publisher(topic)
		if p == nil {
			return nil
		}
		return &gcpPublisher{Publisher: p}
	}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return &gcpPublishResult{
		PublishResult: p.Publisher.Publish(ctx, msg),
		publisher:     p.Publisher,
		orderingKey:   msg.OrderingKey,
	}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
	publisher   *gcppubsub.Publisher
	orderingKey string
}

// Get waits for the server ack. A failed publish pauses its ordering key, so
// the key is resumed here and the row is retried on the next batch.
func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	id, err := r.PublishResult.Get(ctx)
	if err != nil && r.orderingKey != "" {
		r.publisher.ResumePublish(r.orderingKey)
	}
	return id, err
}
