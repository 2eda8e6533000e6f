package assetstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/raids-lab/folio/pkg/logutils"
	"github.com/raids-lab/folio/pkg/metrics"
)

// Run executes fn as the only writer for id.
//
// fn runs on its own goroutine. Once started it always finishes, so the
// directories of id end up in a consistent state even when nobody waits for
// it anymore. Run returns ErrTimeout when the configured timeout expires first
// and ctx.Err() when the caller goes away. Waiting for the lock counts against
// both, and fn is skipped entirely when the lock comes too late.
func (s *Store) Run(ctx context.Context, id string, fn func() error) error {
	if err := validateID(id); err != nil {
		return err
	}
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, s.opts.Timeout, ErrTimeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		unlock := s.locks.Lock(id)
		defer unlock()
		if ctx.Err() != nil {
			done <- context.Cause(ctx)
			return
		}
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("project %s: panic in serialized write: %v", id, r)
			}
		}()
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cause := context.Cause(ctx)
		if errors.Is(cause, ErrTimeout) {
			metrics.WriterTimeoutsTotal.Inc()
			logutils.ForProject(id).Warnf("write still running after %s, detaching", s.opts.Timeout)
			return fmt.Errorf("project %s after %s: %w", id, s.opts.Timeout, ErrTimeout)
		}
		return ctx.Err()
	}
}
