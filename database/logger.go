package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kbukum/voicegate/logger"
)

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
}

// parseLogLevel maps a config level to gorm's, defaulting to warn.
func parseLogLevel(level string) gormlogger.LogLevel {
	if l, ok := gormLevels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return l
	}
	return gormlogger.Warn
}

// sqlLogger routes gorm output into the service logger. Statements are
// logged at debug, slow ones at warn and failures at error.
type sqlLogger struct {
	log   *logger.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func newGormLogger(log *logger.Logger, slow time.Duration, level gormlogger.LogLevel) gormlogger.Interface {
	return &sqlLogger{log: log.WithComponent("sql"), level: level, slow: slow}
}

func (l *sqlLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *sqlLogger) Info(_ context.Context, msg string, data ...interface{}) {
	l.printf(gormlogger.Info, l.log.Info, msg, data)
}

func (l *sqlLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	l.printf(gormlogger.Warn, l.log.Warn, msg, data)
}

func (l *sqlLogger) Error(_ context.Context, msg string, data ...interface{}) {
	l.printf(gormlogger.Error, l.log.Error, msg, data)
}

func (l *sqlLogger) printf(min gormlogger.LogLevel, emit func(string, ...map[string]interface{}), msg string, data []interface{}) {
	if l.level >= min {
		emit(fmt.Sprintf(msg, data...))
	}
}

func (l *sqlLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	stmt, rows := fc()
	fields := logger.MergeWithDuration(logger.Fields("sql", stmt, "rows", rows), elapsed)
	log := l.log.WithContext(ctx)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		fields[logger.FieldError] = err.Error()
		log.Error("query failed", fields)
	case l.slow > 0 && elapsed > l.slow:
		log.Warn("slow query", fields)
	case l.level >= gormlogger.Info:
		log.Debug("query", fields)
	}
}
