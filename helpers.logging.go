package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	LoggerContextKey ContextKey = "request.logger"

	megabyte = 1 << 20
)

var _ zapcore.WriteSyncer = (*RSyncWrite)(nil)

// RSyncWrite is a concurrent safe zap sink writing into the log folder.
// A new file, named after the clock time, is opened as soon as the next
// write would grow the current one beyond the max size.
type RSyncWrite struct {
	mu      sync.Mutex
	clock   Clocker
	folder  string
	isProd  bool
	limit   int64
	file    *os.File
	written int64
}

func NewRSyncWriter(config *Config, clock Clocker) *RSyncWrite {
	return &RSyncWrite{
		clock:  clock,
		folder: config.LogFolder,
		isProd: config.IsProduction,
		limit:  int64(config.LogMaxSize) * megabyte,
	}
}

// Write appends p to the current file, rotating first when needed.
// An entry larger than the max file size is refused.
func (rsw *RSyncWrite) Write(p []byte) (int, error) {
	rsw.mu.Lock()
	defer rsw.mu.Unlock()
	size := int64(len(p))
	if size > rsw.limit {
		return 0, fmt.Errorf("logging: entry of %d bytes exceeds max file size of %d bytes", size, rsw.limit)
	}
	if rsw.file == nil || rsw.written+size > rsw.limit {
		if err := rsw.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := rsw.file.Write(p)
	rsw.written += int64(n)
	return n, err
}

// rotate closes the current file if any and opens a fresh one.
func (rsw *RSyncWrite) rotate() error {
	if rsw.file != nil {
		if err := rsw.file.Close(); err != nil {
			return fmt.Errorf("logging: close %s: %w", rsw.file.Name(), err)
		}
		rsw.file = nil
	}
	if err := os.MkdirAll(rsw.folder, 0o755); err != nil {
		return fmt.Errorf("logging: create folder: %w", err)
	}
	path := CreateLogFilePath(rsw.folder, rsw.isProd, rsw.clock.Now())
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("logging: open %s: %w", path, err)
	}
	rsw.file, rsw.written = file, 0
	return nil
}

func (rsw *RSyncWrite) Sync() error {
	rsw.mu.Lock()
	defer rsw.mu.Unlock()
	if rsw.file == nil {
		return nil
	}
	return rsw.file.Sync()
}

func (rsw *RSyncWrite) Close() error {
	rsw.mu.Lock()
	defer rsw.mu.Unlock()
	if rsw.file == nil {
		return nil
	}
	err := rsw.file.Close()
	rsw.file = nil
	return err
}

// consoleSink writes to stdout and ignores Sync, which fails on
// terminals and pipes on some platforms.
type consoleSink struct{}

func (consoleSink) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

func (consoleSink) Sync() error { return nil }

func encoderConfig(isProd bool) zapcore.EncoderConfig {
	ec := zap.NewDevelopmentEncoderConfig()
	if isProd {
		ec = zap.NewProductionEncoderConfig()
	}
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.LevelKey = "lvl"
	ec.NameKey = "name"
	ec.MessageKey = "msg"
	ec.CallerKey = "caller"
	ec.StacktraceKey = "skt"
	return ec
}

// SetupLogging builds the app logger. Entries are json lines written to w,
// and in development they are also printed to stdout. Timestamps come from
// clock and every entry carries the build details. The returned func
// flushes buffered entries.
func SetupLogging(config *Config, w zapcore.WriteSyncer, clock TickerClocker) (*zap.Logger, func() error) {
	ec := encoderConfig(config.IsProduction)
	cores := []zapcore.Core{zapcore.NewCore(zapcore.NewJSONEncoder(ec), w, config.LogLevel)}
	if !config.IsProduction {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(ec), zapcore.Lock(consoleSink{}), config.LogLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.FatalLevel),
		zap.WithClock(clock),
	).With(
		zap.String("app.commit", config.GitCommit),
		zap.String("app.tag", config.GitTag),
		zap.String("app.built", config.BuildTime),
	)

	return logger, func() error {
		if err := logger.Sync(); err != nil {
			return fmt.Errorf("[flush logs]: %w", err)
		}
		return nil
	}
}

// GetLoggerFromContext returns the request scoped logger set by the
// core middleware, or the app logger outside of a request.
func (api *APIHandler) GetLoggerFromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*zap.Logger); ok {
		return logger
	}
	return api.logger
}

// CreateLogFilePath names a log file after t and the environment,
// e.g. logs/20230702.090503.prod.log.
func CreateLogFilePath(folder string, isProd bool, t time.Time) string {
	env := "dev"
	if isProd {
		env = "prod"
	}
	return filepath.Join(folder, t.Format("20060102.150405")+"."+env+".log")
}
