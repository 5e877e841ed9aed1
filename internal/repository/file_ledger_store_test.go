package repository_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrade/internal/domain"
	"papertrade/internal/repository"
)

func TestFileLedgerStore_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := repository.NewFileLedgerStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.WriteLedger(context.Background(), sampleLedger()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, userA+".json", entries[0].Name())
}

func TestFileLedgerStore_FailedWriteKeepsPreviousState(t *testing.T) {
	dir := t.TempDir()
	s, err := repository.NewFileLedgerStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.WriteLedger(ctx, sampleLedger()))

	// Turn the target into a directory so the rename fails
	other := sampleLedger()
	other.UserID = userB
	require.NoError(t, os.Mkdir(filepath.Join(dir, userB+".json"), 0o755))
	assert.Error(t, s.WriteLedger(ctx, other))

	got, err := s.ReadLedger(ctx, userA)
	require.NoError(t, err)
	assert.Len(t, got.Trades, 2)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestFileLedgerStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := repository.NewFileLedgerStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, userA+".json"), []byte("{not json"), 0o644))

	_, err = s.ReadLedger(context.Background(), userA)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrLedgerNotFound)
}

func TestFileLedgerStore_EscapesUserIDs(t *testing.T) {
	dir := t.TempDir()
	s, err := repository.NewFileLedgerStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	l := domain.NewLedger("../escape/me", base)
	require.NoError(t, s.WriteLedger(ctx, l))

	ids, err := s.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"../escape/me"}, ids)

	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escape"))
	assert.True(t, os.IsNotExist(err))
}

func TestNewFileLedgerStore_RequiresDir(t *testing.T) {
	_, err := repository.NewFileLedgerStore(" ")
	assert.Error(t, err)
}
