package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryPreservesOrderAndSkipsNil(t *testing.T) {
	first := &stubJob{name: "first"}
	second := &stubJob{name: "second"}

	registry := NewRegistry(first, nil)
	registry.Register(second)
	registry.Register(nil)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(jobs))
	}
	if jobs[0] != first || jobs[1] != second {
		t.Fatal("jobs returned out of registration order")
	}
}

func TestRegistryJobsReturnsCopy(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "only"})

	registry.Jobs()[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatal("mutating the returned slice changed the registry")
	}
}
