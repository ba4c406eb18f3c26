package logger

import (
	"fmt"

	"github.com/Leopold1975/helpdesk/internal/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Debugf(template string, args ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	With(args ...interface{}) Logger
	Sync() error
}

type ZapLogger struct {
	*zap.SugaredLogger
}

func New(cfg config.Logger) (Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse level error: %w", err)
	}

	output := cfg.Output
	if len(output) == 0 {
		output = []string{"stdout"}
	}

	errOutput := cfg.ErrOutput
	if len(errOutput) == 0 {
		errOutput = []string{"stderr"}
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	zcfg.OutputPaths = output
	zcfg.ErrorOutputPaths = errOutput
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.DisableStacktrace = true

	l, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger error: %w", err)
	}

	return ZapLogger{l.Sugar()}, nil
}

// Nop discards everything. Used by tests and tools that have no logger config.
func Nop() Logger {
	return ZapLogger{zap.NewNop().Sugar()}
}

func (l ZapLogger) With(args ...interface{}) Logger {
	return ZapLogger{l.SugaredLogger.With(args...)}
}
