package resource

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-hal/log"
)

var logger = log.New("resource")

// Registry tracks every live resource of one renderer context and runs the device-loss sweeps over them.
type Registry struct {
	mu    *sync.Mutex
	order []Resource
	blobs map[Resource]*Blob
	lost  bool
}

var _ Tracker = &Registry{}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		mu:    &sync.Mutex{},
		blobs: make(map[Resource]*Blob),
	}
}

// Track adds r to the registry. Tracking the same resource twice is a no-op.
func (g *Registry) Track(r Resource) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, existing := range g.order {
		if existing == r {
			return
		}
	}
	g.order = append(g.order, r)
}

// Untrack removes r from the registry and drops any host copy held for it.
func (g *Registry) Untrack(r Resource) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, existing := range g.order {
		if existing == r {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	if blob, ok := g.blobs[r]; ok {
		blob.Free()
		delete(g.blobs, r)
	}
}

// Len returns the number of tracked resources.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.order)
}

// Live returns the number of tracked resources currently in StateLive.
func (g *Registry) Live() int {
	n := 0
	for _, r := range g.snapshot() {
		if r.State() == StateLive {
			n++
		}
	}
	return n
}

// Lost reports whether a backup sweep ran without a matching restore sweep.
func (g *Registry) Lost() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lost
}

// BackupAll backs up every live resource in tracking order and keeps the returned host copies until RestoreAll.
// A second call before RestoreAll is a no-op. Failures are collected; the sweep always visits every resource.
//
// Returns:
//   - error: the joined backup failures, or nil
func (g *Registry) BackupAll() error {
	g.mu.Lock()
	if g.lost {
		g.mu.Unlock()
		return nil
	}
	g.lost = true
	g.mu.Unlock()

	var errs []error
	count := 0
	for _, r := range g.snapshot() {
		if r.State() != StateLive {
			continue
		}
		blob, err := r.Backup()
		if err != nil {
			errs = append(errs, fmt.Errorf("backup %s: %w", r.Label(), err))
			continue
		}
		count++
		if blob != nil {
			g.mu.Lock()
			g.blobs[r] = blob
			g.mu.Unlock()
		}
	}
	logger.Noticef("device lost: backed up %d resources", count)
	return errors.Join(errs...)
}

// RestoreAll restores every backed-up resource in tracking order and frees the host copies.
// It is a no-op when no backup sweep is outstanding. A resource whose restore fails keeps its host copy and the
// sweep stays outstanding, so a later RestoreAll retries it.
//
// Returns:
//   - error: the joined restore failures, or nil
func (g *Registry) RestoreAll() error {
	g.mu.Lock()
	if !g.lost {
		g.mu.Unlock()
		return nil
	}
	blobs := g.blobs
	g.blobs = make(map[Resource]*Blob)
	g.mu.Unlock()

	var errs []error
	failed := make(map[Resource]*Blob)
	count := 0
	for _, r := range g.snapshot() {
		if r.State() != StateBackedUp {
			continue
		}
		blob := blobs[r]
		if err := r.Restore(blob); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", r.Label(), err))
			failed[r] = blob
			continue
		}
		blob.Free()
		count++
	}

	pending := 0
	for _, r := range g.snapshot() {
		if r.State() == StateBackedUp {
			pending++
		}
	}
	g.mu.Lock()
	for r, blob := range failed {
		if blob != nil {
			g.blobs[r] = blob
		}
	}
	g.lost = pending > 0
	g.mu.Unlock()

	if pending > 0 {
		logger.Warningf("device restored: restored %d resources, %d still backed up", count, pending)
	} else {
		logger.Noticef("device restored: restored %d resources", count)
	}
	return errors.Join(errs...)
}

func (g *Registry) snapshot() []Resource {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Resource, len(g.order))
	copy(out, g.order)
	return out
}

// Resources returns the tracked resources in tracking order.
func (g *Registry) Resources() []Resource {
	return g.snapshot()
}
