package usecase

import (
	"context"
	"sync"
)

// userLock is a one-slot semaphore. refs counts callers holding or waiting
// for it; the entry is dropped from the map when it reaches zero.
type userLock struct {
	ch   chan struct{}
	refs int
}

// userLocks hands out one lock per user. A lock is a buffered channel so that
// waiting can be abandoned when the context is cancelled.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

func (l *userLocks) ref(userID string) *userLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	lk, ok := l.locks[userID]
	if !ok {
		lk = &userLock{ch: make(chan struct{}, 1)}
		l.locks[userID] = lk
	}
	lk.refs++
	return lk
}

func (l *userLocks) unref(userID string, lk *userLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, userID)
	}
}

// acquire blocks until the user's ledger is idle or ctx is done.
func (l *userLocks) acquire(ctx context.Context, userID string) (func(), error) {
	lk := l.ref(userID)
	select {
	case lk.ch <- struct{}{}:
		return func() {
			<-lk.ch
			l.unref(userID, lk)
		}, nil
	case <-ctx.Done():
		l.unref(userID, lk)
		return nil, ctx.Err()
	}
}

// size reports how many users currently have a lock entry.
func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
