package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dealerworks/dms-backend/pkg/config"
	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/enums"
	"github.com/dealerworks/dms-backend/pkg/logger"
	"github.com/dealerworks/dms-backend/pkg/outbox"
	"github.com/dealerworks/dms-backend/pkg/outbox/registry"
)

var testTopics = config.PubSubConfig{
	DomainTopic:    "dms-domain-events",
	InventoryTopic: "dms-inventory-events",
	LoyaltyTopic:   "dms-loyalty-events",
}

func TestProcessBatchHoldsAggregateAfterRetryableFailure(t *testing.T) {
	account := uuid.New()
	earned := loyaltyRow(t, account, enums.EventLoyaltyPointsEarned)
	tier := loyaltyRow(t, account, enums.EventLoyaltyTierChanged)
	stock := inventoryRow(t, uuid.New())

	repo := &fakeRepo{events: []models.OutboxEvent{earned, tier, stock}}
	pub := &fakePublisher{errs: []error{errors.New("unavailable"), nil}}
	service := newTestService(t, repo, pub, &fakeRegistry{}, &fakeDLQRepo{}, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != earned.ID {
		t.Fatalf("expected only the earned row to be marked failed, got %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != stock.ID {
		t.Fatalf("expected only the stock row to be published, got %v", repo.published)
	}
	for _, msg := range pub.sent {
		if msg.Attributes["event_type"] == string(enums.EventLoyaltyTierChanged) {
			t.Fatal("tier change must wait until the earlier points event is out")
		}
	}
}

func TestProcessBatchRoutesStreams(t *testing.T) {
	account := uuid.New()
	record := uuid.New()
	repo := &fakeRepo{events: []models.OutboxEvent{loyaltyRow(t, account, enums.EventLoyaltyPointsEarned), inventoryRow(t, record)}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub, &fakeRegistry{}, &fakeDLQRepo{}, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(pub.sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(pub.sent))
	}

	cases := []struct {
		topic  string
		stream string
		key    string
	}{
		{topic: testTopics.LoyaltyTopic, stream: "loyalty", key: "loyalty_account:" + account.String()},
		{topic: testTopics.InventoryTopic, stream: "inventory", key: "inventory_record:" + record.String()},
	}
	for i, tc := range cases {
		if pub.topics[i] != tc.topic {
			t.Fatalf("message %d went to %s, want %s", i, pub.topics[i], tc.topic)
		}
		if got := pub.sent[i].Attributes["stream"]; got != tc.stream {
			t.Fatalf("message %d stream %q, want %q", i, got, tc.stream)
		}
		if pub.sent[i].OrderingKey != tc.key {
			t.Fatalf("message %d ordering key %q, want %q", i, pub.sent[i].OrderingKey, tc.key)
		}
	}
}

func TestBuildMessageCarriesDedupeKey(t *testing.T) {
	dedupe := "record-1:2025-06-01"
	row := inventoryRow(t, uuid.New())
	row.EventType = enums.EventInventoryLowStock
	row.DedupeKey = &dedupe
	resolved := &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{Topic: testTopics.InventoryTopic},
		Envelope:   outbox.PayloadEnvelope{EventID: "evt-1"},
	}

	msg := buildMessage(row, resolved, "inventory")
	if msg.Attributes["dedupe_key"] != dedupe {
		t.Fatalf("expected dedupe attribute, got %q", msg.Attributes["dedupe_key"])
	}
	if msg.Attributes["event_id"] != "evt-1" {
		t.Fatalf("unexpected event_id attribute %q", msg.Attributes["event_id"])
	}
	if !bytes.Equal(msg.Data, row.Payload) {
		t.Fatal("payload not forwarded")
	}

	msg = buildMessage(row, resolved, "")
	if _, ok := msg.Attributes["stream"]; ok {
		t.Fatal("unknown topics should not carry a stream attribute")
	}
}

func TestProcessBatchCountsOutcomes(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{
		loyaltyRow(t, uuid.New(), enums.EventLoyaltyPointsEarned),
		loyaltyRow(t, uuid.New(), enums.EventLoyaltyPointsEarned),
		{ID: uuid.New(), EventType: "unknown", AggregateType: enums.AggregateRedemption, AggregateID: uuid.New()},
	}}
	pub := &fakePublisher{errs: []error{nil, errors.New("unavailable")}}
	counts := &fakeMetrics{}
	service := newTestService(t, repo, pub, &fakeRegistry{}, &fakeDLQRepo{}, nil)
	service.metrics = counts

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if counts.published != 1 || counts.retried != 1 || counts.dead != 1 {
		t.Fatalf("unexpected counts %+v", counts)
	}
}

func TestDeliverClassifiesFailures(t *testing.T) {
	cases := []struct {
		name      string
		row       func() models.OutboxEvent
		pubErr    error
		resolve   error
		outcome   outcome
		reason    enums.OutboxDLQErrorReason
		dlqLength int
	}{
		{
			name:      "unresolvable row",
			row:       func() models.OutboxEvent { return inventoryRow(t, uuid.New()) },
			resolve:   registry.NewNonRetryableError(errors.New("invalid payload")),
			outcome:   outcomeDeadLetter,
			reason:    enums.OutboxDLQReasonNonRetryable,
			dlqLength: 1,
		},
		{
			name:      "event type without topic",
			row:       func() models.OutboxEvent { return inventoryRow(t, uuid.New()) },
			resolve:   registry.NewNonRetryableError(fmt.Errorf("%w: unsupported event type warranty_claimed", registry.ErrUnroutable)),
			outcome:   outcomeDeadLetter,
			reason:    enums.OutboxDLQReasonUnroutable,
			dlqLength: 1,
		},
		{
			name: "last attempt",
			row: func() models.OutboxEvent {
				row := inventoryRow(t, uuid.New())
				row.AttemptCount = 1
				return row
			},
			pubErr:    errors.New("transient"),
			outcome:   outcomeDeadLetter,
			reason:    enums.OutboxDLQReasonMaxAttempts,
			dlqLength: 1,
		},
		{
			name:    "transient failure",
			row:     func() models.OutboxEvent { return inventoryRow(t, uuid.New()) },
			pubErr:  errors.New("transient"),
			outcome: outcomeRetry,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := tc.row()
			dlq := &fakeDLQRepo{}
			repo := &fakeRepo{events: []models.OutboxEvent{row}}
			service := newTestService(t, repo, &fakePublisher{errs: []error{tc.pubErr}}, &fakeRegistry{err: tc.resolve}, dlq, &config.OutboxConfig{MaxAttempts: 2})

			result := service.deliver(context.Background(), row)
			if result.outcome != tc.outcome || result.reason != tc.reason {
				t.Fatalf("got outcome %d reason %q", result.outcome, result.reason)
			}
			if err := service.settle(context.Background(), nil, row, result); err != nil {
				t.Fatalf("settle: %v", err)
			}
			if len(dlq.entries) != tc.dlqLength {
				t.Fatalf("expected %d dlq entries, got %d", tc.dlqLength, len(dlq.entries))
			}
			if tc.dlqLength == 1 {
				entry := dlq.entries[0]
				if entry.EventID != row.ID || !bytes.Equal(entry.Payload, row.Payload) || entry.ErrorReason != tc.reason {
					t.Fatalf("unexpected dlq entry %+v", entry)
				}
				if len(repo.terminal) != 1 {
					t.Fatal("dead-lettered row should be marked terminal")
				}
			}
		})
	}
}

func newTestService(t *testing.T, repo outboxRepository, pub *fakePublisher, registry registryResolver, dlq dlqRepository, outboxCfgOverride *config.OutboxConfig) *Service {
	outboxCfg := config.OutboxConfig{
		BatchSize:      10,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	logg := logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Output:      io.Discard,
	})
	service, err := NewService(ServiceParams{
		Outbox:     outboxCfg,
		Topics:     testTopics,
		Logger:     logg,
		DB:         &fakeDB{},
		PubSub:     &fakePubSubClient{},
		Repository: repo,
		Registry:   registry,
		PublisherFactory: func(topic string) publisher {
			return &topicPublisher{topic: topic, fake: pub}
		},
		DLQRepository: dlq,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func loyaltyRow(tb testing.TB, account uuid.UUID, eventType enums.OutboxEventType) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateLoyaltyAccount,
		AggregateID:   account,
		Payload:       mustEnvelopePayload(tb, uuid.NewString()),
	}
}

func inventoryRow(tb testing.TB, record uuid.UUID) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventPartTransactionRecorded,
		AggregateType: enums.AggregateInventoryRecord,
		AggregateID:   record,
		Payload:       mustEnvelopePayload(tb, uuid.NewString()),
	}
}

func mustEnvelopePayload(tb testing.TB, eventID string) json.RawMessage {
	tb.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	})
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error { return nil }

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type fakePubSubClient struct{}

func (f *fakePubSubClient) Ping(context.Context) error { return nil }

func (f *fakePubSubClient) Publisher(string) *gcppubsub.Publisher { return nil }

// fakePublisher records every message in send order and answers with the
// queued errors. An empty queue acks.
type fakePublisher struct {
	errs   []error
	sent   []*gcppubsub.Message
	topics []string
}

type topicPublisher struct {
	topic string
	fake  *fakePublisher
}

func (p *topicPublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f := p.fake
	f.sent = append(f.sent, msg)
	f.topics = append(f.topics, p.topic)
	var err error
	if len(f.errs) > 0 {
		err = f.errs[0]
		f.errs = f.errs[1:]
	}
	return fakePublishResult{err: err}
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "", f.err
}

// fakeRegistry resolves loyalty aggregates to the loyalty topic and the rest
// to inventory. Unknown event types fail like the real registry does.
type fakeRegistry struct {
	err error
}

func (f *fakeRegistry) Resolve(row models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	if !row.EventType.IsValid() {
		return nil, registry.NewNonRetryableError(errors.New("unsupported event type"))
	}
	topic := testTopics.InventoryTopic
	if row.AggregateType == enums.AggregateLoyaltyAccount || row.AggregateType == enums.AggregateRedemption {
		topic = testTopics.LoyaltyTopic
	}
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{EventType: row.EventType, AggregateType: row.AggregateType, Topic: topic},
		Envelope:   outbox.PayloadEnvelope{EventID: row.ID.String(), OccurredAt: time.Now()},
	}, nil
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeMetrics struct {
	published int
	retried   int
	dead      int
}

func (f *fakeMetrics) IncPublished(string)          { f.published++ }
func (f *fakeMetrics) IncRetry(string)              { f.retried++ }
func (f *fakeMetrics) IncDeadLetter(string, string) { f.dead++ }
