// Package cuecache persists cue tables between runs so seeking in a file
// that has not changed needs no Cues parse.
package cuecache

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/luispater/matroska-tree-go/pkg/errors"
	"github.com/luispater/matroska-tree-go/pkg/matroska"
)

const bucketName = "cues-v2"

// A record is the TimestampScale of the file followed by one fixed-size
// entry per cue: time, track, position.
const (
	scaleSize = 8
	cueSize   = 24
)

// Cache is a bbolt file of cue tables keyed by file identity.
type Cache struct {
	path string
	db   *bolt.DB
}

// Open opens or creates the cache at path.
func Open(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.NewCacheError("could not open cue cache", err).WithContext("path", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.NewCacheError("could not create bucket", err).WithContext("bucket", bucketName)
	}
	return &Cache{path: path, db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Key identifies the contents of a file by absolute path, size and
// modification time. Any rewrite of the file yields a new key.
func Key(path string, info os.FileInfo) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return fmt.Sprintf("%s|%d|%d", abs, info.Size(), info.ModTime().UnixNano())
}

func encodeCues(scale uint64, cues []*matroska.Cue) []byte {
	value := make([]byte, scaleSize+len(cues)*cueSize)
	binary.BigEndian.PutUint64(value[:scaleSize], scale)
	for i, cue := range cues {
		b := value[scaleSize+i*cueSize:]
		binary.BigEndian.PutUint64(b[0:8], cue.Time)
		binary.BigEndian.PutUint64(b[8:16], cue.Track)
		binary.BigEndian.PutUint64(b[16:24], uint64(cue.Position))
	}
	return value
}

func decodeCues(value []byte) ([]*matroska.Cue, uint64, error) {
	if len(value) < scaleSize || (len(value)-scaleSize)%cueSize != 0 {
		return nil, 0, fmt.Errorf("cue record of %d bytes", len(value))
	}
	scale := binary.BigEndian.Uint64(value[:scaleSize])
	if scale == 0 {
		return nil, 0, fmt.Errorf("cue record without timestamp scale")
	}
	value = value[scaleSize:]
	cues := make([]*matroska.Cue, len(value)/cueSize)
	for i := range cues {
		b := value[i*cueSize:]
		cues[i] = &matroska.Cue{
			Time:     binary.BigEndian.Uint64(b[0:8]),
			Track:    binary.BigEndian.Uint64(b[8:16]),
			Position: int64(binary.BigEndian.Uint64(b[16:24])),
		}
	}
	return cues, scale, nil
}

// Put stores cues under key together with the TimestampScale their times are
// expressed in, replacing any previous table.
func (c *Cache) Put(key string, scale uint64, cues []*matroska.Cue) error {
	value := encodeCues(scale, cues)
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), value)
	})
	if err != nil {
		return errors.NewCacheError("could not store cues", err).WithContext("key", key)
	}
	return nil
}

// Get returns the table stored under key and its TimestampScale. ok is false
// when there is none.
func (c *Cache) Get(key string) (cues []*matroska.Cue, scale uint64, ok bool, err error) {
	err = c.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if value == nil {
			return nil
		}
		ok = true
		cues, scale, err = decodeCues(value)
		return err
	})
	if err != nil {
		return nil, 0, false, errors.NewCacheError("corrupt cue record", err).WithContext("key", key)
	}
	return cues, scale, ok, nil
}

// Delete drops the table stored under key.
func (c *Cache) Delete(key string) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
	})
	if err != nil {
		return errors.NewCacheError("could not delete cues", err).WithContext("key", key)
	}
	return nil
}

// Len returns the number of stored tables.
func (c *Cache) Len() (int, error) {
	var n int
	err := c.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(bucketName)).Stats().KeyN
		return nil
	})
	return n, err
}
