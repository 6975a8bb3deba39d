// Package concurrency serializes apply runs that touch the same file.
package concurrency

import "sync"

// PathLocks hands out at most one lock per file path. Two suggestions
// patching different files apply concurrently; two suggestions patching the
// same file take turns, so neither commits over a revision the other just
// wrote.
type PathLocks struct {
	locks sync.Map // map[string]chan struct{}
}

// NewPathLocks creates an empty lock table.
func NewPathLocks() *PathLocks {
	return &PathLocks{}
}

// TryAcquire attempts to take the lock for path without blocking.
// Returns false if another apply run holds it.
func (p *PathLocks) TryAcquire(path string) bool {
	actual, _ := p.locks.LoadOrStore(path, make(chan struct{}, 1))
	ch := actual.(chan struct{})

	select {
	case ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release gives the lock for path back. A no-op when nothing holds the
// lock, but callers must only release locks they acquired: an unpaired
// Release while another run holds the lock would free that run's slot.
func (p *PathLocks) Release(path string) {
	if actual, ok := p.locks.Load(path); ok {
		ch := actual.(chan struct{})
		select {
		case <-ch:
		default:
		}
	}
}
