package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// SlowQuery is the latency past which a statement is logged at warn level.
const SlowQuery = 200 * time.Millisecond

// GormLogger sends gorm output through zap with the request fields of ctx.
// Bound values are dropped: credential rows carry ciphertext and order rows
// carry customer data.
type GormLogger struct {
	base  *zap.Logger
	level gormlogger.LogLevel
}

// NewGormLogger logs failed and slow statements. Record-not-found is not a
// failure; repositories turn it into nil results.
func NewGormLogger(base *zap.Logger) *GormLogger {
	return &GormLogger{base: base.Named("gorm"), level: gormlogger.Warn}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	copy := *l
	copy.level = level
	return &copy
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.print(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.print(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.print(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound) && l.level >= gormlogger.Error:
		l.query(ctx, zapcore.ErrorLevel, fc, elapsed, zap.Error(err))
	case elapsed > SlowQuery && l.level >= gormlogger.Warn:
		l.query(ctx, zapcore.WarnLevel, fc, elapsed, zap.Bool("slow", true))
	case l.level >= gormlogger.Info:
		l.query(ctx, zapcore.DebugLevel, fc, elapsed)
	}
}

// ParamsFilter keeps the placeholders and discards the bound values.
func (l *GormLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

func (l *GormLogger) print(ctx context.Context, threshold gormlogger.LogLevel, level zapcore.Level, msg string, data []interface{}) {
	if l.level < threshold {
		return
	}
	if ce := WithContext(ctx, l.base).Check(level, msg); ce != nil {
		if len(data) > 0 {
			ce.Write(zap.Any("data", data))
			return
		}
		ce.Write()
	}
}

func (l *GormLogger) query(ctx context.Context, level zapcore.Level, fc func() (string, int64), elapsed time.Duration, extra ...zap.Field) {
	ce := WithContext(ctx, l.base).Check(level, "gorm.query")
	if ce == nil {
		return
	}
	sql, rows := fc()
	sql = strings.TrimSpace(sql)
	fields := append([]zap.Field{
		zap.String("sql", sql),
		zap.String("statement", statementKind(sql)),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
		zap.Int64("rows_affected", rows),
	}, extra...)
	ce.Write(fields...)
}

func statementKind(sql string) string {
	words := strings.Fields(sql)
	if len(words) == 0 {
		return "UNKNOWN"
	}
	return strings.ToUpper(words[0])
}

var _ gormlogger.Interface = (*GormLogger)(nil)
