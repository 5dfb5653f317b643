package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/abhiruchieats/storefront-api/pkg/logger"
)

const defaultSlowQueryThreshold = 200 * time.Millisecond

// queryLogger reports slow and failed statements through the service logger.
// Not-found lookups and unique violations are control flow for the
// repositories (404s, order-number retries) and stay quiet.
type queryLogger struct {
	logg          *logger.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func newQueryLogger(logg *logger.Logger, slowThreshold time.Duration) gormlogger.Interface {
	if slowThreshold <= 0 {
		slowThreshold = defaultSlowQueryThreshold
	}
	return &queryLogger{logg: logg, level: gormlogger.Warn, slowThreshold: slowThreshold}
}

func (l *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cloned := *l
	cloned.level = level
	return &cloned
}

func (l *queryLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level < gormlogger.Info {
		return
	}
	l.logg.Info(ctx, fmt.Sprintf(msg, args...))
}

func (l *queryLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level < gormlogger.Warn {
		return
	}
	l.logg.Warn(ctx, fmt.Sprintf(msg, args...))
}

func (l *queryLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level < gormlogger.Error {
		return
	}
	l.logg.Error(ctx, "gorm error", errors.New(fmt.Sprintf(msg, args...)))
}

func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level == gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case l.shouldLogError(err):
		l.logg.Error(l.queryContext(ctx, fc, elapsed), "db.query.failed", err)
	case l.level >= gormlogger.Warn && elapsed > l.slowThreshold:
		logCtx := l.logg.WithField(l.queryContext(ctx, fc, elapsed), "slow_threshold_ms", l.slowThreshold.Milliseconds())
		l.logg.Warn(logCtx, "db.query.slow")
	case l.level >= gormlogger.Info:
		l.logg.Info(l.queryContext(ctx, fc, elapsed), "db.query")
	}
}

func (l *queryLogger) queryContext(ctx context.Context, fc func() (string, int64), elapsed time.Duration) context.Context {
	sql, rows := fc()
	return l.logg.WithFields(ctx, map[string]any{
		"sql":        sql,
		"rows":       rows,
		"elapsed_ms": elapsed.Milliseconds(),
	})
}

func (l *queryLogger) shouldLogError(err error) bool {
	if err == nil || l.level < gormlogger.Error {
		return false
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || IsUniqueViolation(err, "") {
		return false
	}
	return true
}
