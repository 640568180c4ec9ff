package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/packfinderz-settlement/pkg/logger"
)

// queryLogger forwards gorm's slow queries and failures to the service logger.
// Routine queries and missing-row lookups are not logged.
type queryLogger struct {
	logg *logger.Logger
	slow time.Duration
	mode gormlogger.LogLevel
}

func newQueryLogger(logg *logger.Logger, slow time.Duration) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	return &queryLogger{logg: logg, slow: slow, mode: gormlogger.Warn}
}

func (q *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *q
	clone.mode = level
	return &clone
}

func (q *queryLogger) Info(ctx context.Context, msg string, args ...any) {
	if q.mode >= gormlogger.Info {
		q.logg.Info(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *queryLogger) Warn(ctx context.Context, msg string, args ...any) {
	if q.mode >= gormlogger.Warn {
		q.logg.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *queryLogger) Error(ctx context.Context, msg string, args ...any) {
	if q.mode >= gormlogger.Error {
		q.logg.Error(ctx, fmt.Sprintf(msg, args...), nil)
	}
}

func (q *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.mode <= gormlogger.Silent {
		return
	}
	took := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && q.mode >= gormlogger.Error:
		sql, rows := fc()
		ctx = q.logg.WithFields(ctx, map[string]any{"sql": sql, "rows": rows, "took_ms": took.Milliseconds()})
		q.logg.Error(ctx, "db.query_failed", err)
	case q.slow > 0 && took > q.slow && q.mode >= gormlogger.Warn:
		sql, rows := fc()
		ctx = q.logg.WithFields(ctx, map[string]any{"sql": sql, "rows": rows, "took_ms": took.Milliseconds()})
		q.logg.Warn(ctx, "db.slow_query")
	}
}
