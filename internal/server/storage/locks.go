package storage

import "sync"

// lockArena hands out per-item mutexes on demand and reclaims them once
// the last holder releases. Version creation, restore and permanent
// delete serialize through it so concurrent writers cannot race on
// version numbering or pruning.
type lockArena struct {
	mu    sync.Mutex
	locks map[string]*itemLock
}

type itemLock struct {
	mu   sync.Mutex
	refs int
}

func newLockArena() *lockArena {
	return &lockArena{locks: make(map[string]*itemLock)}
}

// acquire blocks until the lock for id is held and returns its release
// function. The release must be called exactly once.
func (a *lockArena) acquire(id string) func() {
	a.mu.Lock()
	l, ok := a.locks[id]
	if !ok {
		l = &itemLock{}
		a.locks[id] = l
	}
	l.refs++
	a.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		a.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(a.locks, id)
		}
		a.mu.Unlock()
	}
}
