package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	OutboxRetentionJobName      = "outbox-retention"
	SessionCartRetentionJobName = "session-cart-retention"

	defaultOutboxRetentionDays      = 30
	defaultSessionCartRetentionDays = 14
)

type outboxPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type sessionCartPurger interface {
	DeleteStaleSessionLines(ctx context.Context, cutoff time.Time) (int64, error)
}

// retentionJob deletes rows older than a day-based window.
type retentionJob struct {
	name  string
	days  int
	purge func(ctx context.Context, cutoff time.Time) (int64, error)
	now   func() time.Time
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().AddDate(0, 0, -j.days)
	n, err := j.purge(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", j.name, err)
	}
	return n, nil
}

// NewOutboxRetentionJob purges published outbox rows after days.
func NewOutboxRetentionJob(repo outboxPurger, days int) (Job, error) {
	if repo == nil {
		return nil, errors.New("outbox repository required")
	}
	if days <= 0 {
		days = defaultOutboxRetentionDays
	}
	return &retentionJob{
		name: OutboxRetentionJobName,
		days: days,
		purge: func(ctx context.Context, cutoff time.Time) (int64, error) {
			return repo.DeletePublishedBefore(ctx, nil, cutoff)
		},
		now: time.Now,
	}, nil
}

// NewSessionCartRetentionJob expires anonymous carts nobody has touched for
// days. Those shoppers never signed in, so nothing else can reach the lines.
func NewSessionCartRetentionJob(repo sessionCartPurger, days int) (Job, error) {
	if repo == nil {
		return nil, errors.New("cart repository required")
	}
	if days <= 0 {
		days = defaultSessionCartRetentionDays
	}
	return &retentionJob{
		name:  SessionCartRetentionJobName,
		days:  days,
		purge: repo.DeleteStaleSessionLines,
		now:   time.Now,
	}, nil
}
