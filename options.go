package msgloop

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// loopConfig holds configuration assembled from LoopOption values passed to
// New.
type loopConfig struct {
	clock        Clock
	logger       *logiface.Logger[*stumpy.Event]
	trackMetrics bool
}

func defaultLoopConfig() loopConfig {
	return loopConfig{
		clock:        systemClock{},
		trackMetrics: false,
	}
}

// WithClock overrides the loop's time source; tests use this to control
// deadline expiry deterministically instead of racing real timers.
func WithClock(c Clock) LoopOption {
	return func(cfg *loopConfig) {
		cfg.clock = c
	}
}

// WithLogger overrides the loop's structured logger, replacing the default
// stumpy-backed logger at LevelWarning.
func WithLogger(l *logiface.Logger[*stumpy.Event]) LoopOption {
	return func(cfg *loopConfig) {
		cfg.logger = l
	}
}

// WithMetrics enables per-handler and per-task dispatch latency tracking,
// retrievable via Loop.Metrics. Disabled by default, since the P-square
// estimators add a small amount of work to every dispatch.
func WithMetrics(enabled bool) LoopOption {
	return func(cfg *loopConfig) {
		cfg.trackMetrics = enabled
	}
}
