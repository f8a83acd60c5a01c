package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/carline-backend/pkg/logger"
)

var discardLogger = gormlogger.Discard

// QueryLogger sends gorm's statement traces to the service logger. Failed
// and slow statements log at warn, everything else at debug. Bound
// parameters are never written, so credentials and emails stay out of logs.
type QueryLogger struct {
	logg  *logger.Logger
	slow  time.Duration
	level gormlogger.LogLevel
}

var (
	_ gormlogger.Interface = (*QueryLogger)(nil)
	_ gorm.ParamsFilter    = (*QueryLogger)(nil)
)

func NewQueryLogger(logg *logger.Logger, slow time.Duration) *QueryLogger {
	return &QueryLogger{logg: logg, slow: slow, level: gormlogger.Info}
}

func (q *QueryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *q
	clone.level = level
	return &clone
}

func (q *QueryLogger) Info(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Info {
		q.logg.Debug(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *QueryLogger) Warn(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Warn {
		q.logg.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *QueryLogger) Error(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Error {
		q.logg.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *QueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := q.slow > 0 && elapsed > q.slow

	if !failed && !slow && q.level < gormlogger.Info {
		return
	}
	stmt, rows := fc()
	fields := map[string]any{
		"sql":        stmt,
		"rows":       rows,
		"elapsed_ms": elapsed.Milliseconds(),
	}
	switch {
	case failed && q.level >= gormlogger.Error:
		fields["error"] = err.Error()
		q.logg.Warn(q.logg.WithFields(ctx, fields), "db query failed")
	case slow && q.level >= gormlogger.Warn:
		q.logg.Warn(q.logg.WithFields(ctx, fields), "slow db query")
	case q.level >= gormlogger.Info:
		q.logg.Debug(q.logg.WithFields(ctx, fields), "db query")
	}
}

// ParamsFilter drops bound values; statements are logged with placeholders.
func (q *QueryLogger) ParamsFilter(_ context.Context, sql string, _ ...any) (string, []any) {
	return sql, nil
}
