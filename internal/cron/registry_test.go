package cron

import (
	"context"
	"testing"
	"time"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	registry := NewRegistry(nil, &stubJob{name: "stock-report-refresh"})
	registry.Register(&stubJob{name: "low-stock-scan"})
	registry.Register(nil)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
	names := registry.Names()
	if names[0] != "stock-report-refresh" || names[1] != "low-stock-scan" {
		t.Fatalf("unexpected order %v", names)
	}
}

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "low-stock-scan"})
	if job, ok := registry.Lookup("low-stock-scan"); !ok || job.Name() != "low-stock-scan" {
		t.Fatalf("expected to find low-stock-scan")
	}
	if _, ok := registry.Lookup("missing"); ok {
		t.Fatalf("expected missing job lookup to fail")
	}
}

func TestRegistryCadence(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "stock-report-refresh"})
	registry.RegisterEvery(&stubJob{name: "outbox-retention"}, 24*time.Hour)
	registry.RegisterEvery(&stubJob{name: "negative"}, -time.Minute)

	if got := registry.Every("stock-report-refresh"); got != 0 {
		t.Fatalf("expected every-cycle job, got %v", got)
	}
	if got := registry.Every("outbox-retention"); got != 24*time.Hour {
		t.Fatalf("expected daily cadence, got %v", got)
	}
	if got := registry.Every("negative"); got != 0 {
		t.Fatalf("negative cadence should clamp to zero, got %v", got)
	}
}
