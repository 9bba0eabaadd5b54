package state

import (
	"encoding/json"
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrNotFound is returned when a key is not in the store.
var ErrNotFound = errors.New("not found")

// StateDB is the low-level LevelDB wrapper. It lives in memory only.
type StateDB struct {
	db *leveldb.DB
}

// NewStateDB opens an empty in-memory LevelDB.
func NewStateDB() (*StateDB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &StateDB{db: db}, nil
}

// Close releases the DB.
func (s *StateDB) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *StateDB) putJSON(key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Put(key, data, nil)
}

func (s *StateDB) getJSON(key []byte, v interface{}) error {
	data, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// eachPrefix calls fn for every value under prefix in key order. It stops
// early when fn returns false.
func (s *StateDB) eachPrefix(prefix []byte, reverse bool, fn func(value []byte) bool) error {
	it := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()

	if reverse {
		for ok := it.Last(); ok; ok = it.Prev() {
			if !fn(it.Value()) {
				break
			}
		}
	} else {
		for it.Next() {
			if !fn(it.Value()) {
				break
			}
		}
	}
	return it.Error()
}
