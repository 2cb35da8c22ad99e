package memory

import (
	"context"
	"sync"
)

// lockTable hands out one exclusive lock per key. Locks are channels so a waiter can
// give up when its context ends. An entry lives only while someone holds or waits on it.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*lockEntry)}
}

func (l *lockTable) ref(key string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.locks[key]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	return e
}

// unref drops one reference; l.mu must be held
func (l *lockTable) unref(key string, e *lockEntry) {
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *lockTable) acquire(ctx context.Context, key string) error {
	e := l.ref(key)
	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		l.unref(key, e)
		l.mu.Unlock()
		return ctx.Err()
	}
}

func (l *lockTable) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.locks[key]
	if !ok {
		return
	}
	<-e.ch
	l.unref(key, e)
}

func (l *lockTable) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
