package cron

import (
	"testing"

	"github.com/ideasdevops/lead-ia/pkg/logger"
)

func TestRegistryKeepsWorkerJobsInOrder(t *testing.T) {
	stale, err := NewStaleSearchJob(StaleSearchJobParams{
		Logger:   logger.Nop(),
		Searches: &fakeStaleLister{},
	})
	if err != nil {
		t.Fatalf("stale job: %v", err)
	}
	retention, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.Nop(),
		Repository: &fakeOutboxRetentionRepo{},
	})
	if err != nil {
		t.Fatalf("retention job: %v", err)
	}

	registry, err := NewRegistry(stale, nil, retention)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("nil jobs should be skipped, got %d jobs", len(jobs))
	}
	if jobs[0].Name() != "stale-searches" || jobs[1].Name() != "outbox-retention" {
		t.Fatalf("unexpected order %s, %s", jobs[0].Name(), jobs[1].Name())
	}

	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatal("Jobs must return a copy")
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	retention := func() Job {
		job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
			Logger:     logger.Nop(),
			Repository: &fakeOutboxRetentionRepo{},
		})
		if err != nil {
			t.Fatalf("retention job: %v", err)
		}
		return job
	}
	if _, err := NewRegistry(retention(), retention()); err == nil {
		t.Fatal("expected duplicate name error")
	}
}
