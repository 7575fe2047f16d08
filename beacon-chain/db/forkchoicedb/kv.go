// Package forkchoicedb is a bolt-db, key-value persistence layer for the
// fork-choice core, adapted from the beacon node's general-purpose kv store
// down to the single column fork choice actually needs.
package forkchoicedb

import (
	"os"
	"path"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	prombolt "github.com/prysmaticlabs/prombbolt"
	bolt "go.etcd.io/bbolt"
)

const (
	databaseFileName = "forkchoice.db"
	boltAllocSize    = 8 * 1024 * 1024
	filePermissions  = 0600
	dirPermissions   = 0700
)

// forkChoiceBucket is the sole bucket this store manages: one key holding
// the latest PersistedForkChoice snapshot.
var forkChoiceBucket = []byte("forkchoice")

// snapshotKey is the single key written into forkChoiceBucket.
var snapshotKey = []byte("snapshot")

// Store wraps a bbolt database holding exactly one bucket and one key, the
// persistence shape the data model calls for.
type Store struct {
	db           *bolt.DB
	databasePath string
}

// NewKVStore opens (creating if necessary) a bbolt database at dirPath and
// ensures the fork-choice bucket exists.
func NewKVStore(dirPath string) (*Store, error) {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		if err := os.MkdirAll(dirPath, dirPermissions); err != nil {
			return nil, errors.Wrap(err, "could not create database directory")
		}
	}

	datafile := path.Join(dirPath, databaseFileName)
	boltDB, err := bolt.Open(datafile, filePermissions, &bolt.Options{Timeout: 1 * time.Second, InitialMmapSize: 10e6})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, errors.New("cannot obtain database lock, database may be in use by another process")
		}
		return nil, err
	}
	boltDB.AllocSize = boltAllocSize

	s := &Store{db: boltDB, databasePath: dirPath}

	if err := s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(forkChoiceBucket)
		return err
	}); err != nil {
		return nil, err
	}

	if err := prometheus.Register(createBoltCollector(s.db)); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			return nil, err
		}
	}

	return s, nil
}

// SaveSnapshot writes the encoded snapshot, replacing whatever was stored
// before. Encoding happens upstream in the forkchoice package; this layer
// only persists bytes.
func (s *Store) SaveSnapshot(encoded []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(forkChoiceBucket).Put(snapshotKey, encoded)
	})
}

// LoadSnapshot returns the last saved snapshot bytes, or nil if none has
// ever been written.
func (s *Store) LoadSnapshot() ([]byte, error) {
	var encoded []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(forkChoiceBucket).Get(snapshotKey)
		if v != nil {
			encoded = make([]byte, len(v))
			copy(encoded, v)
		}
		return nil
	})
	return encoded, err
}

// ClearDB removes the database file from disk.
func (s *Store) ClearDB() error {
	if _, err := os.Stat(s.databasePath); os.IsNotExist(err) {
		return nil
	}
	prometheus.Unregister(createBoltCollector(s.db))
	return errors.Wrap(os.Remove(path.Join(s.databasePath, databaseFileName)), "could not remove database file")
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	prometheus.Unregister(createBoltCollector(s.db))
	return s.db.Close()
}

// DatabasePath returns the directory this store writes files into.
func (s *Store) DatabasePath() string {
	return s.databasePath
}

func createBoltCollector(db *bolt.DB) prometheus.Collector {
	return prombolt.New("forkChoiceBoltDB", db)
}
