// Package daemon wires the event source to the guard gate and owns the
// process lifecycle of the detection loop.
package daemon

import (
	"context"

	"go.uber.org/zap"

	"github.com/seeother/scrollguard/internal/domain"
)

// EventHandler is the slice of the guard gate the runner needs.
type EventHandler interface {
	ShouldProcess(kind domain.EventKind, packageID, screenID string) bool
	Process(kind domain.EventKind, packageID, screenID string, timestamp int64, tree domain.UITree)
	HandleForegroundChange(packageID string)
	Destroy()
}

// Runner drains the event source and drives the gate. Events are
// handled synchronously, one at a time, matching the platform's
// single-callback delivery model.
type Runner struct {
	handler EventHandler
	source  domain.EventSource
	logger  *zap.Logger
}

// NewRunner creates a runner for the given gate and source.
func NewRunner(handler EventHandler, source domain.EventSource, logger *zap.Logger) *Runner {
	return &Runner{
		handler: handler,
		source:  source,
		logger:  logger,
	}
}

// Run blocks until the context is canceled or the source closes its
// channel. Gate state is destroyed on the way out.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("guard detection loop started")
	defer r.handler.Destroy()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("guard detection loop stopping")
			return ctx.Err()

		case ev, ok := <-r.source.Events():
			if !ok {
				r.logger.Info("event source closed")
				return nil
			}
			r.handle(ev)
		}
	}
}

func (r *Runner) handle(ev domain.UIEvent) {
	switch ev.Kind {
	case domain.EventForegroundChanged:
		r.handler.HandleForegroundChange(ev.PackageID)

	case domain.EventScroll, domain.EventContentChanged:
		if !r.handler.ShouldProcess(ev.Kind, ev.PackageID, ev.ScreenID) {
			return
		}
		if ev.Tree == nil {
			r.logger.Debug("matched event without tree snapshot, skipping",
				zap.String("package", ev.PackageID),
				zap.Stringer("kind", ev.Kind))
			return
		}
		r.handler.Process(ev.Kind, ev.PackageID, ev.ScreenID, ev.Timestamp, ev.Tree)

	default:
		r.logger.Debug("unhandled event kind", zap.Stringer("kind", ev.Kind))
	}
}
