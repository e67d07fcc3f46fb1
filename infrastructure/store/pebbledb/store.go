package pebbledb

import (
	"encoding/binary"
	"path/filepath"

	"github.com/cockroachdb/pebble"
	"github.com/kitty-items/flow-event-publisher/entities"
	"github.com/pkg/errors"
)

const lastProcessedHeightKey = "lph"

type Store struct {
	db *pebble.DB
}

func NewProcessorStore(storeDir string) (*Store, error) {
	db, err := pebble.Open(filepath.Join(storeDir, "event-publisher-store"), &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "opening pebble db")
	}

	return &Store{db: db}, nil
}

func (ps *Store) SetLastProcessedHeight(height uint64) error {
	key := []byte(lastProcessedHeightKey)

	var value []byte
	value = binary.BigEndian.AppendUint64(value, height)

	err := ps.db.Set(key, value, pebble.Sync)
	if err != nil {
		return errors.Wrapf(err, "setting key [%s] to [%d]", lastProcessedHeightKey, height)
	}

	return nil
}

func (ps *Store) GetLastProcessedHeight() (uint64, error) {
	key := []byte(lastProcessedHeightKey)

	value, closer, err := ps.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, entities.ErrStoreEntityNotFound
	}
	if err != nil {
		return 0, errors.Wrapf(err, "getting value for key [%s]", lastProcessedHeightKey)
	}
	defer closer.Close()

	if len(value) != 8 {
		return 0, errors.Errorf("invalid value length [%d] for key [%s]", len(value), lastProcessedHeightKey)
	}
	return binary.BigEndian.Uint64(value), nil
}

func (ps *Store) Close() error {
	return ps.db.Close()
}
