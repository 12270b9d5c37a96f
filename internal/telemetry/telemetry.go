// Package telemetry writes structured run events as JSON lines.
//
// Events carry sizes, counts and durations only; raw prompts, tool
// arguments and tool output are never recorded.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Event names.
const (
	EventRunStarted    = "run_started"
	EventTransportCall = "transport_call"
	EventToolExec      = "tool_exec"
	EventRunFinished   = "run_finished"
)

// Config controls event output.
type Config struct {
	Enabled    bool
	Path       string // JSONL file; rotated by size
	MaxSizeMB  int
	MaxBackups int
}

// DefaultPath is where events go unless configured otherwise.
const DefaultPath = ".agent/events.jsonl"

// Sink writes events. The zero value is not usable; use New or Nop.
type Sink struct {
	logger *zap.Logger
	file   *lumberjack.Logger
}

// Nop returns a sink that drops every event.
func Nop() *Sink {
	return &Sink{logger: zap.NewNop()}
}

// New opens the event file when cfg.Enabled, and returns Nop otherwise.
func New(cfg Config) (*Sink, error) {
	if !cfg.Enabled {
		return Nop(), nil
	}
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("telemetry: mkdir %s: %w", filepath.Dir(path), err)
	}
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}

	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		LocalTime:  false,
	}
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		MessageKey:     "event",
		LevelKey:       zapcore.OmitKey,
		NameKey:        zapcore.OmitKey,
		CallerKey:      zapcore.OmitKey,
		FunctionKey:    zapcore.OmitKey,
		StacktraceKey:  zapcore.OmitKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), zapcore.InfoLevel)
	return &Sink{logger: zap.New(core), file: file}, nil
}

// Emit writes one event line. Run and turn IDs are taken from ctx.
func (s *Sink) Emit(ctx context.Context, name string, fields ...zap.Field) {
	if runID, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, zap.String("run_id", runID))
	}
	if turnID, ok := TurnIDFromContext(ctx); ok {
		fields = append(fields, zap.String("turn_id", turnID))
	}
	s.logger.Info(name, fields...)
}

// Close flushes and closes the event file.
func (s *Sink) Close() error {
	_ = s.logger.Sync()
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// DurationMS is a helper for millisecond duration fields.
func DurationMS(key string, d time.Duration) zap.Field {
	return zap.Int64(key, d.Milliseconds())
}
