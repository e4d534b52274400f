package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/diegocastellanos/booklend-backend/pkg/logger"
)

// Published outbox rows are kept for a month so delivery can be audited,
// then pruned once the publisher has had enough attempts at them.
const (
	outboxRetentionDays = 30
	outboxMinAttempts   = 5
)

type publishedEventPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

// OutboxRetentionJobParams configure the published-event pruning job.
type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repository  publishedEventPruner
	Retention   int
	MinAttempts int
}

type outboxRetentionJob struct {
	logg          *logger.Logger
	db            txRunner
	pruner        publishedEventPruner
	retentionDays int
	minAttempts   int
	now           func() time.Time
}

// NewOutboxRetentionJob builds the job that deletes old published outbox rows.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("db runner required")
	case params.Repository == nil:
		return nil, fmt.Errorf("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:          params.Logger,
		db:            params.DB,
		pruner:        params.Repository,
		retentionDays: params.Retention,
		minAttempts:   params.MinAttempts,
		now:           time.Now,
	}
	if job.retentionDays <= 0 {
		job.retentionDays = outboxRetentionDays
	}
	if job.minAttempts <= 0 {
		job.minAttempts = outboxMinAttempts
	}
	return job, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retentionDays)

	var pruned int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		pruned, txErr = j.pruner.DeletePublishedBefore(ctx, tx, cutoff, j.minAttempts)
		return txErr
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retentionDays,
		"min_attempts":   j.minAttempts,
		"rows_deleted":   pruned,
	}), "outbox retention cleanup complete")
	return nil
}
