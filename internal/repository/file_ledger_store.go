package repository

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"papertrade/internal/domain"
)

const ledgerFileExt = ".json"

// FileLedgerStore keeps one JSON document per user in a directory. Writes go
// through a temp file and a rename so a ledger file is always complete.
type FileLedgerStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileLedgerStore creates the directory if needed
func NewFileLedgerStore(dir string) (*FileLedgerStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("ledger store dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create ledger store dir")
	}
	return &FileLedgerStore{dir: dir}, nil
}

func (s *FileLedgerStore) path(userID string) string {
	return filepath.Join(s.dir, url.PathEscape(userID)+ledgerFileExt)
}

// ReadLedger returns domain.ErrLedgerNotFound when the user has no file yet
func (s *FileLedgerStore) ReadLedger(ctx context.Context, userID string) (*domain.Ledger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.load(userID)
}

func (s *FileLedgerStore) load(userID string) (*domain.Ledger, error) {
	payload, err := os.ReadFile(s.path(userID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrLedgerNotFound
		}
		return nil, errors.Wrap(err, "read ledger")
	}
	if len(payload) == 0 {
		return nil, domain.ErrLedgerNotFound
	}

	var ledger domain.Ledger
	if err := json.Unmarshal(payload, &ledger); err != nil {
		return nil, errors.Wrap(err, "decode ledger")
	}
	if ledger.Holdings == nil {
		ledger.Holdings = []domain.Holding{}
	}
	if ledger.Trades == nil {
		ledger.Trades = []domain.Trade{}
	}
	return &ledger, nil
}

// WriteLedger replaces the user's file atomically
func (s *FileLedgerStore) WriteLedger(ctx context.Context, ledger *domain.Ledger) error {
	if ledger == nil || ledger.UserID == "" {
		return errors.New("ledger with user id is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(ledger)
}

func (s *FileLedgerStore) save(ledger *domain.Ledger) error {
	payload, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode ledger")
	}

	tmp, err := os.CreateTemp(s.dir, ".ledger-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create ledger temp file")
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write ledger temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "sync ledger temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close ledger temp file")
	}
	if err := os.Rename(tmpName, s.path(ledger.UserID)); err != nil {
		return errors.Wrap(err, "persist ledger")
	}

	committed = true
	return nil
}

// ResetLedger overwrites the user's file with a freshly seeded ledger
func (s *FileLedgerStore) ResetLedger(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := time.Now().UTC()
	if existing, err := s.load(userID); err == nil {
		created = existing.CreatedAt
	}
	fresh := domain.NewLedger(userID, time.Now().UTC())
	fresh.CreatedAt = created
	return s.save(fresh)
}

// ListUserIDs returns every user with a ledger file, sorted
func (s *FileLedgerStore) ListUserIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, "list ledger dir")
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ledgerFileExt) {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(name, ledgerFileExt))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op for the file store
func (s *FileLedgerStore) Close() error { return nil }
