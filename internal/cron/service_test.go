package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ideasdevops/lead-ia/pkg/logger"
	"github.com/ideasdevops/lead-ia/pkg/metrics"
)

type fakeLock struct {
	acquired bool
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.acquired = false
	f.releases++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "success"}
	bad := &testJob{name: "fail", err: errors.New("boom")}
	registry, err := NewRegistry(ok, bad)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	reg := prometheus.NewRegistry()
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if ok.runs != 1 || bad.runs != 1 {
		t.Fatalf("expected each job once, got success=%d fail=%d", ok.runs, bad.runs)
	}
	if lock.releases != 1 || lock.acquired {
		t.Fatalf("lock not released: %+v", lock)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	counts := map[string]string{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() != nil && m.GetCounter().GetValue() == 1 {
				counts[mf.GetName()] = m.GetLabel()[0].GetValue()
			}
		}
	}
	if counts["leadia_cron_job_success_total"] != "success" || counts["leadia_cron_job_failure_total"] != "fail" {
		t.Fatalf("unexpected counters %v", counts)
	}
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "j"}
	registry, _ := NewRegistry(job)
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: registry,
		Lock:     &fakeLock{acquired: true},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job ran while another instance held the lock")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "j"}
	registry, _ := NewRegistry(job)
	service, _ := NewService(ServiceParams{Logger: logger.Nop(), Registry: registry, Lock: NewLocalLock()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected the initial cycle to run, got %d runs", job.runs)
	}
}
