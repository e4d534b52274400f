package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/diegocastellanos/booklend-backend/pkg/logger"
)

type pruneRecorder struct {
	calls       int
	cutoff      time.Time
	minAttempts int
	err         error
}

func (p *pruneRecorder) DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	p.calls++
	p.cutoff = cutoff
	p.minAttempts = minAttemptCount
	return 7, p.err
}

type noopTxRunner struct{}

func (noopTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func buildRetentionJob(t *testing.T, pruner *pruneRecorder) *outboxRetentionJob {
	t.Helper()
	built, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         noopTxRunner{},
		Repository: pruner,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	return built.(*outboxRetentionJob)
}

func TestOutboxRetentionJobPrunesWithDefaults(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	pruner := &pruneRecorder{}
	job := buildRetentionJob(t, pruner)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if pruner.calls != 1 {
		t.Fatalf("pruner called %d times", pruner.calls)
	}
	wantCutoff := now.AddDate(0, 0, -outboxRetentionDays)
	if !pruner.cutoff.Equal(wantCutoff) {
		t.Fatalf("cutoff %s, want %s", pruner.cutoff, wantCutoff)
	}
	if pruner.minAttempts != outboxMinAttempts {
		t.Fatalf("min attempts %d, want %d", pruner.minAttempts, outboxMinAttempts)
	}
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	job := buildRetentionJob(t, &pruneRecorder{err: errors.New("boom")})

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
