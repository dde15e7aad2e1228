package gofilter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerConfig configures GormLogger.
type GormLoggerConfig struct {
	LogLevel gormlogger.LogLevel
	// SlowThreshold - statements slower than this are logged as warnings.
	// Zero disables slow statement logging.
	SlowThreshold time.Duration
	// IgnoreRecordNotFoundError - do not log gorm.ErrRecordNotFound.
	IgnoreRecordNotFoundError bool
}

// DefaultGormLoggerConfig logs errors and statements slower than 200ms.
var DefaultGormLoggerConfig = GormLoggerConfig{
	LogLevel:                  gormlogger.Warn,
	SlowThreshold:             200 * time.Millisecond,
	IgnoreRecordNotFoundError: true,
}

// GormLogger sends gorm's statement trace to a zap logger.
//
// Usage:
//
//	db, err := gorm.Open(dialector, &gorm.Config{
//		Logger: gofilter.NewGormLogger(zapLogger, gofilter.DefaultGormLoggerConfig),
//	})
type GormLogger struct {
	logger *zap.Logger
	config GormLoggerConfig
}

func NewGormLogger(logger *zap.Logger, config GormLoggerConfig) *GormLogger {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &GormLogger{
		logger: logger.WithOptions(zap.AddCallerSkip(3)),
		config: config,
	}
}

// LogMode - implements logger.Interface.
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.config.LogLevel = level

	return &clone
}

// Info - implements logger.Interface.
func (l *GormLogger) Info(_ context.Context, msg string, data ...any) {
	if l.config.LogLevel >= gormlogger.Info {
		l.logger.Info(fmt.Sprintf(msg, data...))
	}
}

// Warn - implements logger.Interface.
func (l *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.config.LogLevel >= gormlogger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, data...))
	}
}

// Error - implements logger.Interface.
func (l *GormLogger) Error(_ context.Context, msg string, data ...any) {
	if l.config.LogLevel >= gormlogger.Error {
		l.logger.Error(fmt.Sprintf(msg, data...))
	}
}

// Trace - implements logger.Interface.
func (l *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.config.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	statement := func() []zap.Field {
		sql, rows := fc()
		return []zap.Field{
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
		}
	}

	switch {
	case err != nil && l.config.LogLevel >= gormlogger.Error &&
		!(l.config.IgnoreRecordNotFoundError && errors.Is(err, gorm.ErrRecordNotFound)):
		l.logger.Error("statement failed", append(statement(), zap.Error(err))...)
	case l.config.SlowThreshold != 0 && elapsed > l.config.SlowThreshold && l.config.LogLevel >= gormlogger.Warn:
		l.logger.Warn("slow statement", append(statement(), zap.Duration("threshold", l.config.SlowThreshold))...)
	case l.config.LogLevel >= gormlogger.Info:
		l.logger.Debug("statement", statement()...)
	}
}

var _ gormlogger.Interface = (*GormLogger)(nil)
