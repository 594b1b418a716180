package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ideasdevops/lead-ia/pkg/config"
	"github.com/ideasdevops/lead-ia/pkg/db/models"
	"github.com/ideasdevops/lead-ia/pkg/enums"
	"github.com/ideasdevops/lead-ia/pkg/logger"
	"github.com/ideasdevops/lead-ia/pkg/outbox"
	"github.com/ideasdevops/lead-ia/pkg/outbox/payloads"
	"github.com/ideasdevops/lead-ia/pkg/outbox/registry"
)

func TestProcessBatchContinuesAfterTransientFailure(t *testing.T) {
	first := completedEvent(t, 1, 0)
	second := completedEvent(t, 2, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{first, second}}
	pub := &fakePublisher{results: []publishResult{
		fakePublishResult{err: errors.New("transient")},
		fakePublishResult{},
	}}
	service := newTestService(t, repo, pub, 5)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != first.ID {
		t.Fatalf("expected first row marked failed, got %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != second.ID {
		t.Fatalf("expected second row marked published, got %v", repo.published)
	}
	if len(repo.terminal) != 0 {
		t.Fatalf("no row should be terminal, got %v", repo.terminal)
	}
}

func TestPublishedMessageCarriesRoutingAttributes(t *testing.T) {
	event := completedEvent(t, 42, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	service := newTestService(t, repo, pub, 5)

	var topics []string
	service.publisherFactory = func(topic string) publisher {
		topics = append(topics, topic)
		return pub
	}

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(topics) != 1 || topics[0] != "search-events" {
		t.Fatalf("unexpected topics %v", topics)
	}
	if len(pub.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(pub.sent))
	}
	attrs := pub.sent[0].Attributes
	if attrs["event_type"] != string(enums.EventSearchCompleted) ||
		attrs["aggregate_type"] != string(enums.AggregateSearchQuery) ||
		attrs["aggregate_id"] != "42" ||
		attrs["event_id"] == "" {
		t.Fatalf("unexpected attributes %v", attrs)
	}
	if string(pub.sent[0].Data) != string(event.Payload) {
		t.Fatal("message data should be the stored envelope")
	}
}

func TestUndecodableRowIsParked(t *testing.T) {
	event := completedEvent(t, 3, 0)
	event.Payload = json.RawMessage(`{"version":1,"eventId":"x","data":null}`)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub, 5)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(repo.terminal) != 1 || repo.terminal[0] != event.ID {
		t.Fatalf("expected row parked, got %v", repo.terminal)
	}
	if len(pub.sent) != 0 {
		t.Fatal("nothing should be published for an undecodable row")
	}
}

func TestLastAttemptIsParked(t *testing.T) {
	event := completedEvent(t, 4, 1)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{err: errors.New("transient")}}}
	service := newTestService(t, repo, pub, 2)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(repo.terminal) != 1 || repo.terminal[0] != event.ID {
		t.Fatalf("expected row parked at the ceiling, got %v", repo.terminal)
	}
	if repo.terminalAttempts != 2 {
		t.Fatalf("expected terminal attempts 2, got %d", repo.terminalAttempts)
	}
	if len(repo.failed) != 0 {
		t.Fatalf("row should not also be marked failed: %v", repo.failed)
	}
}

func TestMissingPublisherIsNotRetried(t *testing.T) {
	event := completedEvent(t, 5, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	service := newTestService(t, repo, nil, 5)
	service.publisherFactory = func(string) publisher { return nil }

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected row parked, got %v", repo.terminal)
	}
}

func TestEmptyBatchReportsIdle(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, 5)
	processed, err := service.processBatch(context.Background())
	if err != nil || processed {
		t.Fatalf("expected idle batch, got processed=%v err=%v", processed, err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNextBackoffIsCapped(t *testing.T) {
	base := 100 * time.Millisecond
	if got := nextBackoff(0, base, time.Second); got != 200*time.Millisecond {
		t.Fatalf("unexpected first backoff %s", got)
	}
	if got := nextBackoff(800*time.Millisecond, base, time.Second); got != time.Second {
		t.Fatalf("expected cap, got %s", got)
	}
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, maxAttempts int) *Service {
	t.Helper()
	events, err := registry.NewEventRegistry(config.PubSubConfig{SearchTopic: "search-events"})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	cfg := &config.Config{Outbox: config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    maxAttempts,
	}}
	service, err := NewService(ServiceParams{
		Config:           cfg,
		Logger:           logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:               &fakeDB{},
		PubSub:           &fakePubSubClient{},
		Repository:       repo,
		Registry:         events,
		PublisherFactory: func(string) publisher { return pub },
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func completedEvent(t *testing.T, searchID uint, attempts int) models.OutboxEvent {
	t.Helper()
	data, err := json.Marshal(payloads.SearchCompletedEvent{
		SearchQueryID: searchID,
		UserID:        7,
		Source:        enums.SearchSourceGoogleMaps,
		LeadsCount:    2,
		CompletedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventSearchCompleted,
		AggregateType: enums.AggregateSearchQuery,
		AggregateID:   searchID,
		Payload:       envelope,
		AttemptCount:  attempts,
	}
}

type fakeRepo struct {
	events           []models.OutboxEvent
	published        []uuid.UUID
	failed           []uuid.UUID
	terminal         []uuid.UUID
	terminalAttempts int
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

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, terminalAttempts int) error {
	f.terminal = append(f.terminal, id)
	f.terminalAttempts = terminalAttempts
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error { return nil }

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakePubSubClient struct{}

func (f *fakePubSubClient) Ping(context.Context) error { return nil }

func (f *fakePubSubClient) Publisher(string) *gcppubsub.Publisher { return nil }

type fakePublisher struct {
	results []publishResult
	sent    []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.sent = append(f.sent, msg)
	if len(f.results) == 0 {
		return nil
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "", f.err
}
