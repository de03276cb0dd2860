package msgloop

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// loopLogger wraps a logiface.Logger, giving the dispatcher a small,
// stable set of call sites independent of the concrete backend. A nil
// *loopLogger, or one whose inner logger is nil, silently drops everything,
// so callers never need to nil-check before logging. newLoopLogger(nil)
// does not produce such a logger: it substitutes defaultLogger.
type loopLogger struct {
	logger *logiface.Logger[*stumpy.Event]
}

// defaultLogger builds a new logger for each Loop constructed without WithLogger,
// matching stumpy's default (JSON to stderr) at LevelWarning so routine
// dispatch doesn't spam informational lines.
func defaultLogger() *logiface.Logger[*stumpy.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(),
		stumpy.L.WithLevel(logiface.LevelWarning),
	)
}

func newLoopLogger(l *logiface.Logger[*stumpy.Event]) *loopLogger {
	if l == nil {
		l = defaultLogger()
	}
	return &loopLogger{logger: l}
}

func (l *loopLogger) warn(msg string, err error) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Warning().Err(err).Log(msg)
}

func (l *loopLogger) info(msg string) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Info().Log(msg)
}
