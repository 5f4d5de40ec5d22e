// Package logging builds the process logger. Hook output on stdout is a
// protocol, so logs go to a file under the log directory, and to stderr only
// when asked.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileName is the process log inside the log directory.
const FileName = "agentgate.log"

// Config selects where and how much to log.
type Config struct {
	// Dir is the log directory. Empty disables the file sink.
	Dir string

	// Level is debug, info, warn, or error. Empty means info.
	Level string

	// Format is json or console. Empty means json.
	Format string

	// Stderr also writes console-formatted logs to stderr.
	Stderr bool
}

// New builds a logger from cfg. The returned close func flushes and releases
// the log file; it is safe to call when no file was opened.
func New(cfg Config) (*zap.Logger, func(), error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		l, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}

	var cores []zapcore.Core
	closeFile := func() {}
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		ws, closeFn, err := zap.Open(filepath.Join(cfg.Dir, FileName))
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		closeFile = closeFn
		cores = append(cores, zapcore.NewCore(newEncoder(cfg.Format), ws, level))
	}
	if cfg.Stderr {
		cores = append(cores, zapcore.NewCore(newEncoder("console"), zapcore.Lock(os.Stderr), level))
	}
	if len(cores) == 0 {
		return zap.NewNop(), func() {}, nil
	}

	logger := zap.New(zapcore.NewTee(cores...)).With(zap.Int("pid", os.Getpid()))
	return logger, func() {
		_ = logger.Sync()
		closeFile()
	}, nil
}

// newEncoder creates a JSON or console encoder.
func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}
