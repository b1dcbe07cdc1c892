package usecase

import "sync"

// sessionLocks hands out one mutex per key. Entries are dropped once nobody holds or waits on them.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{
		locks: make(map[string]*sessionLock),
	}
}

// lock blocks until key is free and returns the matching unlock.
func (that *sessionLocks) lock(key string) func() {
	that.mu.Lock()
	l, ok := that.locks[key]
	if !ok {
		l = &sessionLock{}
		that.locks[key] = l
	}
	l.refs++
	that.mu.Unlock()

	l.Lock()

	return func() {
		l.Unlock()

		that.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(that.locks, key)
		}
		that.mu.Unlock()
	}
}

func (that *sessionLocks) size() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.locks)
}
