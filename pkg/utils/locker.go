package utils

import "sync"

type keyLock struct {
	sync.Mutex
	refs int
}

// Locker hands out one mutex per key and forgets keys nobody waits on.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

func NewLocker() *Locker {
	return &Locker{
		locks: make(map[string]*keyLock),
	}
}

// Lock blocks until key is free and returns the matching unlock.
func (l *Locker) Lock(key string) (unlock func()) {
	l.mu.Lock()
	item, ok := l.locks[key]
	if !ok {
		item = &keyLock{}
		l.locks[key] = item
	}
	item.refs++
	l.mu.Unlock()

	item.Lock()
	return func() {
		item.Unlock()
		l.mu.Lock()
		item.refs--
		if item.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// Len reports how many keys are held or waited on.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
