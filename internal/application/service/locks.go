package service

import "sync"

// claimLocks serializes decision recording per claim so concurrent approvals
// of the same claim replay a consistent ledger. Claims are independent; locks
// are keyed by claim ID.
type claimLocks struct {
	mu    sync.Mutex
	locks map[string]*claimLock
}

type claimLock struct {
	mu   sync.Mutex
	refs int
}

func newClaimLocks() *claimLocks {
	return &claimLocks{locks: make(map[string]*claimLock)}
}

// Lock acquires the lock for a claim ID and returns its unlock function.
// Entries are dropped when the last holder releases, so the map does not grow
// with the claim table.
func (c *claimLocks) Lock(id string) func() {
	c.mu.Lock()
	l, ok := c.locks[id]
	if !ok {
		l = &claimLock{}
		c.locks[id] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, id)
		}
		c.mu.Unlock()
	}
}
