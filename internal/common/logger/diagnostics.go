package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Diagnostics records unhandled failures with their stack for later inspection.
type Diagnostics interface {
	Capture(sessionID string, err error, fields map[string]interface{})
}

type zapDiagnostics struct {
	l *zap.Logger
}

// NewDiagnostics appends JSON lines with stack traces to path.
func NewDiagnostics(path string) (Diagnostics, func() error, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Sampling = nil
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.StacktraceKey = "traceback"

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, nil, err
	}
	return &zapDiagnostics{l: l}, l.Sync, nil
}

// NewZapDiagnostics wraps an existing *zap.Logger, e.g. an observer core in tests.
func NewZapDiagnostics(l *zap.Logger) Diagnostics {
	return &zapDiagnostics{l: l}
}

func (d *zapDiagnostics) Capture(sessionID string, err error, fields map[string]interface{}) {
	zf := append(mapToZapFields(fields), zap.String("sessionId", sessionID), zap.Error(err))
	d.l.Error("unhandled pipeline failure", zf...)
}
