package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/lanrat/wireguard-warp-generator/pkg/errors"
)

// Stage logs the lifecycle of one pipeline step at debug level. Failures
// are reported once by the caller, so Fail does not log at error level.
type Stage struct {
	logger *Logger
	ctx    context.Context
	start  time.Time
	attrs  []any
}

// StartStage begins tracking a pipeline step.
func (l *Logger) StartStage(ctx context.Context, name string, args ...any) *Stage {
	s := &Stage{
		logger: l.With(slog.String("stage", name)),
		ctx:    WithOperation(ctx, name),
		start:  time.Now(),
		attrs:  args,
	}
	s.logger.DebugContext(s.ctx, "stage started", s.fields(nil)...)
	return s
}

// Context returns ctx tagged with the stage name.
func (s *Stage) Context() context.Context {
	return s.ctx
}

// Complete logs successful completion with the elapsed time.
func (s *Stage) Complete(args ...any) {
	s.logger.DebugContext(s.ctx, "stage completed", s.fields(args, slog.Duration("duration", time.Since(s.start)))...)
}

// Fail logs the failure cause and returns err unchanged.
func (s *Stage) Fail(err error) error {
	s.logger.DebugContext(s.ctx, "stage failed", s.fields(nil,
		slog.Duration("duration", time.Since(s.start)),
		slog.String("error_domain", errors.GetErrorDomain(err)),
		slog.String("error_code", errors.GetErrorCode(err)),
		slog.String("error", err.Error()),
	)...)
	return err
}

func (s *Stage) fields(extra []any, attrs ...slog.Attr) []any {
	out := make([]any, 0, len(attrs)+len(s.attrs)+len(extra))
	for _, a := range attrs {
		out = append(out, a)
	}
	out = append(out, s.attrs...)
	return append(out, extra...)
}
