package forkchoicedb

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"
)

const backupsDirectoryName = "backups"

// Backup copies the current database file to the backups directory, named
// after the atSlot the caller passes so an operator can tell backups apart
// without opening them. An empty outputDir means a "backups" directory under
// the database path.
//
// Example: $DATADIR/backups/forkchoice_at_slot_0000345.backup
func (s *Store) Backup(ctx context.Context, outputDir string, atSlot uint64) error {
	_, span := trace.StartSpan(ctx, "forkchoicedb.Backup")
	defer span.End()

	backupsDir := outputDir
	if backupsDir == "" {
		backupsDir = path.Join(s.databasePath, backupsDirectoryName)
	}
	if err := os.MkdirAll(backupsDir, dirPermissions); err != nil {
		return err
	}

	backupPath := path.Join(backupsDir, fmt.Sprintf("forkchoice_at_slot_%07d.backup", atSlot))
	logrus.WithField("prefix", "forkchoicedb").WithField("backup", backupPath).Info("Writing fork choice backup")

	copyDB, err := bolt.Open(backupPath, filePermissions, nil)
	if err != nil {
		return errors.Wrap(err, "could not open backup database")
	}
	defer func() {
		if err := copyDB.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close backup database")
		}
	}()

	return s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bolt.Bucket) error {
			logrus.Debugf("Copying bucket %s", name)
			return copyDB.Update(func(tx2 *bolt.Tx) error {
				b2, err := tx2.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return b.ForEach(b2.Put)
			})
		})
	})
}
