package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dealerworks/dms-backend/pkg/logger"
	"github.com/dealerworks/dms-backend/pkg/metrics"
)

type fakeLock struct {
	acquired bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

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

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	registry := NewRegistry(&testJob{name: "success"}, &testJob{name: "fail", err: errors.New("boom")})
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     &fakeLock{},
		Interval: 0,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx := context.Background()
	if err := service.runCycle(ctx); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if success, ok := jobs[0].(*testJob); ok {
		if success.runs != 1 {
			t.Fatalf("expected success job to run once, ran %d", success.runs)
		}
	} else {
		t.Fatalf("first job type mismatch")
	}
	if failure, ok := jobs[1].(*testJob); ok {
		if failure.runs != 1 {
			t.Fatalf("expected failure job to run once, ran %d", failure.runs)
		}
	} else {
		t.Fatalf("second job type mismatch")
	}
}

func TestServiceRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "loyalty_points_expiry"}
	lock := &fakeLock{acquired: true}
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected job to be skipped, ran %d", job.runs)
	}
}

func TestServiceRecordsJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: NewRegistry(&testJob{name: "inventory_low_stock_scan"}, &testJob{name: "outbox_retention", err: errors.New("boom")}),
		Lock:     &fakeLock{},
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	expected := `
# HELP cron_job_runs_total Cron job runs, by job and outcome.
# TYPE cron_job_runs_total counter
cron_job_runs_total{job="inventory_low_stock_scan",outcome="success"} 1
cron_job_runs_total{job="outbox_retention",outcome="failure"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "cron_job_runs_total"); err != nil {
		t.Fatal(err)
	}
}

func TestServiceRespectsJobCadence(t *testing.T) {
	expiry := &testJob{name: "loyalty_points_expiry"}
	flaky := &testJob{name: "outbox_retention", err: errors.New("db down")}
	registry := NewRegistry()
	if err := registry.Register(expiry, 24*time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := registry.Register(flaky, 24*time.Hour); err != nil {
		t.Fatal(err)
	}
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: registry,
		Lock:     &fakeLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	clock := time.Date(2025, 3, 15, 2, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		if err := service.RunOnce(context.Background()); err != nil {
			t.Fatalf("run once: %v", err)
		}
		clock = clock.Add(time.Hour)
	}
	if expiry.runs != 1 {
		t.Fatalf("daily expiry should run once in three hours, ran %d", expiry.runs)
	}
	if flaky.runs != 3 {
		t.Fatalf("a failing job should be retried every cycle, ran %d", flaky.runs)
	}
}
