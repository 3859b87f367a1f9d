package storage

import (
	"fmt"
	"path/filepath"

	"github.com/squaredose/squaredosed/pkg/types"
	bolt "go.etcd.io/bbolt"
)

// Namespaces used by the core components, per the persistence layout.
const (
	NamespaceWifiConfig = "wifi_config"
	NamespaceSchedules  = "schedules"
	NamespaceDosingLogs = "dosinglogs"
)

// NamespaceDosingHead returns the per-head calibration namespace.
func NamespaceDosingHead(head int) string {
	return fmt.Sprintf("dosingHead%d", head)
}

// BoltStore implements Store on top of an embedded BoltDB file. Each
// namespace is its own bucket, created on first use.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if absent) the database file under dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "squaredose.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, ns := range [][]byte{
			[]byte(NamespaceWifiConfig),
			[]byte(NamespaceSchedules),
			[]byte(NamespaceDosingLogs),
		} {
			if _, err := tx.CreateBucketIfNotExists(ns); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", ns, err)
			}
		}
		for head := 0; head < types.NumHeads; head++ {
			name := []byte(NamespaceDosingHead(head))
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// bucket returns an existing namespace bucket, creating it on demand — the
// namespace set above is fixed at boot, but callers shouldn't have to know
// that to use the interface.
func (s *BoltStore) bucket(tx *bolt.Tx, namespace string) (*bolt.Bucket, error) {
	b := tx.Bucket([]byte(namespace))
	if b != nil {
		return b, nil
	}
	return tx.CreateBucket([]byte(namespace))
}

// PutBytes writes blob under key in namespace, replacing any prior value.
func (s *BoltStore) PutBytes(namespace, key string, blob []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := s.bucket(tx, namespace)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), blob)
	})
}

// GetBytes returns the value for key, or (nil, nil) if absent.
func (s *BoltStore) GetBytes(namespace, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(namespace))
		if b == nil {
			return nil
		}
		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}
		out = make([]byte, len(data))
		copy(out, data)
		return nil
	})
	return out, err
}

// Remove deletes key from namespace; removing an absent key is a no-op.
func (s *BoltStore) Remove(namespace, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(namespace))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// Clear removes every key in namespace.
func (s *BoltStore) Clear(namespace string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(namespace))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			return b.Delete(k)
		})
	})
}

// ListKeys returns every key currently present in namespace.
func (s *BoltStore) ListKeys(namespace string) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(namespace))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}
