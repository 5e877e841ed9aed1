package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"papertrade/internal/domain"
)

// memStore is an in-memory LedgerStore that can be told to fail writes.
type memStore struct {
	mu        sync.Mutex
	ledgers   map[string]*domain.Ledger
	failWrite error
	failRead  error
	writes    int
}

func newMemStore() *memStore {
	return &memStore{ledgers: make(map[string]*domain.Ledger)}
}

func (s *memStore) ReadLedger(_ context.Context, userID string) (*domain.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRead != nil {
		return nil, s.failRead
	}
	l, ok := s.ledgers[userID]
	if !ok {
		return nil, domain.ErrLedgerNotFound
	}
	return l.Clone(), nil
}

func (s *memStore) WriteLedger(_ context.Context, ledger *domain.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return s.failWrite
	}
	s.writes++
	s.ledgers[ledger.UserID] = ledger.Clone()
	return nil
}

func (s *memStore) ResetLedger(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return s.failWrite
	}
	s.ledgers[userID] = domain.NewLedger(userID, time.Now())
	return nil
}

func (s *memStore) ListUserIDs(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.ledgers))
	for id := range s.ledgers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) snapshot(userID string) *domain.Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.ledgers[userID]; ok {
		return l.Clone()
	}
	return nil
}

var errDiskFull = errors.New("disk full")

// fixedClock returns a clock that advances one second per call.
func fixedClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}
