package engine

import (
	"context"

	"go.uber.org/zap"
)

// SideEffect is a named outbound write produced by an execution, returned to
// the caller instead of being performed inline. The name identifies the
// effect in logs.
type SideEffect struct {
	Name string
	Run  func(ctx context.Context) error
}

// RunSideEffects runs each effect in order, isolating failures: one failed
// effect is logged and does not stop the rest, and no failure propagates to
// the caller.
func RunSideEffects(ctx context.Context, logger *zap.Logger, effects []SideEffect) {
	for _, effect := range effects {
		if err := effect.Run(ctx); err != nil {
			logger.Warn("side effect failed",
				zap.String("effect", effect.Name),
				zap.Error(err))
		}
	}
}
