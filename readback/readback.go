// Package readback implements the process-wide readback guard of spec
// §5: explicit GPU→CPU readback (sampling's argmax/top-K result, test
// hooks that inspect a buffer's contents) must never overlap, since a
// concurrent map+wait pair on the same queue can deadlock the driver.
// The guard serializes readbacks with a single-slot semaphore, the same
// shape as a mutex but expressed as a channel so Acquire can honor
// context cancellation.
package readback

import "context"

// Guard serializes readback operations across the whole runtime.
type Guard struct {
	sem chan struct{}
}

// NewGuard constructs an unlocked Guard.
func NewGuard() *Guard {
	g := &Guard{sem: make(chan struct{}, 1)}
	g.sem <- struct{}{}
	return g
}

// Acquire blocks until no other readback is in flight, or until ctx is
// canceled.
func (g *Guard) Acquire(ctx context.Context) error {
	select {
	case <-g.sem:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns the guard to the unlocked state. Calling Release
// without a preceding successful Acquire is a caller bug and will panic
// the same way an unpaired sync.Mutex.Unlock does.
func (g *Guard) Release() {
	select {
	case g.sem <- struct{}{}:
	default:
		panic("readback: Release called without a matching Acquire")
	}
}

// With runs fn while holding the guard, releasing it on return even if
// fn panics.
func (g *Guard) With(ctx context.Context, fn func() error) error {
	if err := g.Acquire(ctx); err != nil {
		return err
	}
	defer g.Release()
	return fn()
}
