// Package audit writes one JSON line per tool call to a dedicated log file.
package audit

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Outcome recorded for calls that succeeded.
const OutcomeOK = "ok"

// auditedArgs are the only arguments copied into entries.
var auditedArgs = []string{"path", "pattern", "encoding"}

// Entry describes a finished tool call.
type Entry struct {
	SessionID string
	RequestID string
	Transport string
	Tool      string
	Arguments map[string]interface{}
	Outcome   string
	Duration  time.Duration
}

// Logger appends audit entries. A nil *Logger discards everything.
type Logger struct {
	logger *zap.Logger
	close  func()
}

// New opens path for appending. The file is created if missing.
func New(path string) (*Logger, error) {
	sink, closeSink, err := zap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	l := NewWithCore(zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), sink, zapcore.InfoLevel))
	l.close = closeSink
	return l, nil
}

// NewWithCore builds a logger on an existing core. Close only syncs it.
func NewWithCore(core zapcore.Core) *Logger {
	return &Logger{logger: zap.New(core), close: func() {}}
}

// Record writes e.
func (l *Logger) Record(e Entry) {
	if l == nil {
		return
	}

	fields := []zap.Field{
		zap.String("session_id", e.SessionID),
		zap.String("request_id", e.RequestID),
		zap.String("transport", e.Transport),
		zap.String("tool", e.Tool),
		zap.String("outcome", e.Outcome),
		zap.Duration("duration", e.Duration),
	}
	for _, key := range auditedArgs {
		if v, ok := e.Arguments[key].(string); ok {
			fields = append(fields, zap.String(key, v))
		}
	}

	l.logger.Info("tool_call", fields...)
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	err := l.logger.Sync()
	l.close()
	return err
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		MessageKey:     "event",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
}
