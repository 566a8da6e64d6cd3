package telemetry

import (
	"context"

	"go.uber.org/zap"
)

// zapLogger adapts a *zap.SugaredLogger to the Logger interface.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger constructs a Logger backed by the given zap logger. Passing
// nil uses zap's production default.
func NewZapLogger(base *zap.Logger) Logger {
	if base == nil {
		base, _ = zap.NewProduction()
	}
	return &zapLogger{sugar: base.Sugar()}
}

func (l *zapLogger) Debug(_ context.Context, msg string, keyvals ...any) {
	l.sugar.Debugw(msg, keyvals...)
}

func (l *zapLogger) Info(_ context.Context, msg string, keyvals ...any) {
	l.sugar.Infow(msg, keyvals...)
}

func (l *zapLogger) Warn(_ context.Context, msg string, keyvals ...any) {
	l.sugar.Warnw(msg, keyvals...)
}

func (l *zapLogger) Error(_ context.Context, msg string, keyvals ...any) {
	l.sugar.Errorw(msg, keyvals...)
}
