// Package logger provides logging implementations for the management client
package logger

import (
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/camelspeed/couchnode/pkg/interfaces"
)

// ConsoleLogger is a simple logger implementation for development
type ConsoleLogger struct {
	Level  string
	fields map[string]interface{}
}

// Debug logs debug level messages
func (l *ConsoleLogger) Debug(msg string, fields ...map[string]interface{}) {
	if l.Level == "debug" {
		l.logWithFields("DEBUG", msg, fields...)
	}
}

// Info logs info level messages
func (l *ConsoleLogger) Info(msg string, fields ...map[string]interface{}) {
	l.logWithFields("INFO", msg, fields...)
}

// Warn logs warning level messages
func (l *ConsoleLogger) Warn(msg string, fields ...map[string]interface{}) {
	l.logWithFields("WARN", msg, fields...)
}

// Error logs error level messages
func (l *ConsoleLogger) Error(msg string, err error, fields ...map[string]interface{}) {
	var allFields []map[string]interface{}
	if err != nil {
		allFields = append(allFields, map[string]interface{}{"error": err.Error()})
	}
	allFields = append(allFields, fields...)
	l.logWithFields("ERROR", msg, allFields...)
}

// Fatal logs fatal level messages and exits
func (l *ConsoleLogger) Fatal(msg string, err error, fields ...map[string]interface{}) {
	l.Error(msg, err, fields...)
	os.Exit(1)
}

// WithFields returns a logger with additional fields
func (l *ConsoleLogger) WithFields(fields map[string]interface{}) interfaces.Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &ConsoleLogger{Level: l.Level, fields: merged}
}

func (l *ConsoleLogger) logWithFields(level, msg string, fields ...map[string]interface{}) {
	logMsg := fmt.Sprintf("[%s] %s", level, msg)

	for key, value := range l.fields {
		logMsg += fmt.Sprintf(" %s=%v", key, value)
	}
	for _, fieldMap := range fields {
		for key, value := range fieldMap {
			logMsg += fmt.Sprintf(" %s=%v", key, value)
		}
	}

	log.Println(logMsg)
}

// NewConsoleLogger creates a new console logger
func NewConsoleLogger(level string) interfaces.Logger {
	return &ConsoleLogger{
		Level: level,
	}
}

// NewTestLogger creates a logger for testing
func NewTestLogger() interfaces.Logger {
	return &ConsoleLogger{
		Level: "debug",
	}
}

// NewLogger creates a new logger with default settings
func NewLogger() interfaces.Logger {
	return &ConsoleLogger{
		Level: "info",
	}
}

// ZapLogger adapts a zap.SugaredLogger to the Logger interface
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger creates a production zap-backed logger
func NewZapLogger(level string) (interfaces.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}

	return &ZapLogger{sugar: zl.Sugar()}, nil
}

// Debug logs debug level messages
func (l *ZapLogger) Debug(msg string, fields ...map[string]interface{}) {
	l.sugar.Debugw(msg, flatten(fields)...)
}

// Info logs info level messages
func (l *ZapLogger) Info(msg string, fields ...map[string]interface{}) {
	l.sugar.Infow(msg, flatten(fields)...)
}

// Warn logs warning level messages
func (l *ZapLogger) Warn(msg string, fields ...map[string]interface{}) {
	l.sugar.Warnw(msg, flatten(fields)...)
}

// Error logs error level messages
func (l *ZapLogger) Error(msg string, err error, fields ...map[string]interface{}) {
	kv := flatten(fields)
	if err != nil {
		kv = append(kv, "error", err.Error())
	}
	l.sugar.Errorw(msg, kv...)
}

// Fatal logs fatal level messages and exits
func (l *ZapLogger) Fatal(msg string, err error, fields ...map[string]interface{}) {
	kv := flatten(fields)
	if err != nil {
		kv = append(kv, "error", err.Error())
	}
	l.sugar.Fatalw(msg, kv...)
}

// WithFields returns a logger with additional fields
func (l *ZapLogger) WithFields(fields map[string]interface{}) interfaces.Logger {
	return &ZapLogger{sugar: l.sugar.With(flatten([]map[string]interface{}{fields})...)}
}

func flatten(fields []map[string]interface{}) []interface{} {
	var kv []interface{}
	for _, fieldMap := range fields {
		for key, value := range fieldMap {
			kv = append(kv, key, value)
		}
	}
	return kv
}
