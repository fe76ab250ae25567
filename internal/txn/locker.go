package txn

import "sync"

// Locker serializes coordinator operations per aggregate key (one service
// request plus its offers). Every multi-entity sequence runs under the key's
// mutex, so two accepts on different offers of the same request can never
// interleave between their steps. The database row lock still guards against
// other processes; this closes the race inside one.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*entry)}
}

// Lock acquires the mutex for key, returning the unlock func. Entries are
// reference-counted and removed once the last holder releases, so the map
// does not grow with the request table.
func (l *Locker) Lock(key string) func() {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
