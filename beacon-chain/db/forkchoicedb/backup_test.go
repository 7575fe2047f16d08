package forkchoicedb

import (
	"context"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackup_WritesNamedFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewKVStore(dir)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveSnapshot([]byte{1, 2, 3}))

	backupDir := path.Join(dir, "backups-out")
	require.NoError(t, s.Backup(ctx, backupDir, 345))

	_, err = os.Stat(path.Join(backupDir, "forkchoice_at_slot_0000345.backup"))
	assert.NoError(t, err)
}

func TestBackup_DefaultsToDatabasePathSubdir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewKVStore(dir)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Backup(ctx, "", 0))

	_, err = os.Stat(path.Join(dir, backupsDirectoryName, "forkchoice_at_slot_0000000.backup"))
	assert.NoError(t, err)
}
