package sink

import (
	"context"
	"errors"

	"github.com/crm-sirene/internal/reconcile"
)

// Multi writes every snapshot to all sinks. A failing sink does not stop
// the others; the errors are joined.
type Multi []reconcile.Sink

// Write fans the snapshot out in order
func (m Multi) Write(ctx context.Context, snap *reconcile.Snapshot) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
