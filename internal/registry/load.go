package registry

import (
	"context"
	"errors"
	"fmt"
)

// errNilSource is wrapped in a LoadError when LoadDatabase is given no source.
var errNilSource = errors.New("nil source")

// LoadError reports a source that failed to resolve.
type LoadError struct {
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("help database load failed: %v", e.Err)
}

// Unwrap returns the source's error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load tracks one LoadDatabase call. Done closes after the merge and its
// notification have happened, or after the source failed.
type Load struct {
	done chan struct{}
	err  error
}

func newLoad() *Load {
	return &Load{done: make(chan struct{})}
}

// Done returns a channel closed when the load has finished.
func (l *Load) Done() <-chan struct{} {
	return l.done
}

// Err returns the *LoadError of a failed load, or nil when the load succeeded
// or is still pending.
func (l *Load) Err() error {
	select {
	case <-l.done:
		return l.err
	default:
		return nil
	}
}

// Wait blocks until the load has finished or ctx is done.
func (l *Load) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return l.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
