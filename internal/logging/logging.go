// Package logging provides the pipeline's three named log channels
// (decompression, encoding, analysis) per spec §6, built the way the
// teacher builds its StructuredLogger (services/common/logging.go):
// zap.Logger configured via zapcore.EncoderConfig, injected into
// subsystems via constructor parameters rather than a package-level
// global.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Channel names the three sinks required by spec §6.
type Channel string

const (
	Decompression Channel = "decompression"
	Encoding      Channel = "encoding"
	Analysis      Channel = "analyzing"
)

var channels = [...]Channel{Decompression, Encoding, Analysis}

// Channels is the timestamped-line, newline-delimited file sink set
// opened at runtime startup and closed at shutdown. Each channel writes
// to <temp_base>/{decompression|encoding|analyzing}.log.
type Channels struct {
	loggers map[Channel]*zap.Logger
	files   map[Channel]*os.File
}

// Open creates (or appends to) the three log files under tempBase and
// builds one *zap.Logger per channel. Callers must defer Close.
func Open(tempBase string) (*Channels, error) {
	cfg := encoderConfig()
	c := &Channels{
		loggers: make(map[Channel]*zap.Logger, len(channels)),
		files:   make(map[Channel]*os.File, len(channels)),
	}
	for _, ch := range channels {
		path := filepath.Join(tempBase, string(ch)+".log")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("logging: open %s: %w", path, err)
		}
		core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(f), zap.InfoLevel)
		c.files[ch] = f
		c.loggers[ch] = zap.New(core).With(zap.String("channel", string(ch)), zap.Int("pid", os.Getpid()))
	}
	return c, nil
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.LevelKey = "level"
	cfg.MessageKey = "msg"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	cfg.LineEnding = zapcore.DefaultLineEnding
	return cfg
}

// For returns the named channel's logger. Panics on an unknown channel
// since the channel set is fixed and compiled-in.
func (c *Channels) For(ch Channel) *zap.Logger {
	l, ok := c.loggers[ch]
	if !ok {
		panic(fmt.Sprintf("logging: unknown channel %q", ch))
	}
	return l
}

// Close syncs and closes every open sink. Errors are collected but do
// not stop later sinks from being closed; the caller is shutting down
// regardless.
func (c *Channels) Close() error {
	var firstErr error
	for _, ch := range channels {
		if l, ok := c.loggers[ch]; ok {
			_ = l.Sync()
		}
		if f, ok := c.files[ch]; ok {
			if err := f.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
