// Package keylock hands out one reader/writer lock per key. Operations on
// different keys never contend; entries are dropped once nobody holds or
// waits for them, so memory stays proportional to in-flight keys.
package keylock

import "sync"

type entry struct {
	mu   sync.RWMutex
	refs int
}

// Arena is safe for concurrent use. The zero value is ready.
type Arena struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Arena {
	return &Arena{}
}

func (a *Arena) acquire(key string) *entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.entries == nil {
		a.entries = make(map[string]*entry)
	}
	e, ok := a.entries[key]
	if !ok {
		e = &entry{}
		a.entries[key] = e
	}
	e.refs++
	return e
}

func (a *Arena) release(key string, e *entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(a.entries, key)
	}
}

// Lock takes the exclusive lock for key and returns its release function.
func (a *Arena) Lock(key string) (unlock func()) {
	e := a.acquire(key)
	e.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			a.release(key, e)
		})
	}
}

// RLock takes a shared lock for key and returns its release function.
func (a *Arena) RLock(key string) (unlock func()) {
	e := a.acquire(key)
	e.mu.RLock()
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.RUnlock()
			a.release(key, e)
		})
	}
}

// Len reports how many keys currently have holders or waiters.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
