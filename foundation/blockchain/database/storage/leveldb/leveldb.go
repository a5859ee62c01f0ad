// Package leveldb implements the ability to read and write blocks to a
// leveldb instance keyed by block hash.
package leveldb

import (
	"encoding/json"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldbErrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// blockPrefix namespaces the block keys inside the database.
var blockPrefix = []byte("block-")

// Options is a function that returns the leveldb options used for opening
// a database. It's defined as a variable for the sake of testing.
var Options = func() *opt.Options {
	return &opt.Options{
		Compression:            opt.NoCompression,
		BlockCacheCapacity:     32 * opt.MiB,
		WriteBuffer:            16 * opt.MiB,
		DisableSeeksCompaction: true,
	}
}

// LevelDB defines a thin wrapper around leveldb. This implements the
// database.Storage and database.Walker interfaces.
type LevelDB struct {
	ldb *leveldb.DB
}

// New opens a leveldb instance defined by the given path. If the database
// is corrupted, an attempt is made to recover it.
func New(path string) (*LevelDB, error) {

	// Open leveldb. If it doesn't exist, create it.
	ldb, err := leveldb.OpenFile(path, Options())

	// If the database is corrupted, attempt to recover.
	if _, corrupted := err.(*ldbErrors.ErrCorrupted); corrupted {
		ldb, err = leveldb.RecoverFile(path, nil)
	}

	// If the database cannot be opened for any other
	// reason, return the error as-is.
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %s", path)
	}

	return &LevelDB{ldb: ldb}, nil
}

// Close closes the leveldb instance.
func (db *LevelDB) Close() error {
	return db.ldb.Close()
}

// Put marshals the block and stores it under the hash. The write is synced
// so a successful put survives a crash.
func (db *LevelDB) Put(hash signature.Digest, blockData database.BlockData) error {
	data, err := json.Marshal(blockData)
	if err != nil {
		return errors.Wrapf(err, "encoding block %s", hash)
	}

	if err := db.ldb.Put(key(hash), data, &opt.WriteOptions{Sync: true}); err != nil {
		return errors.Wrapf(err, "writing block %s", hash)
	}

	return nil
}

// Get returns the block stored under the hash.
func (db *LevelDB) Get(hash signature.Digest) (database.BlockData, error) {
	data, err := db.ldb.Get(key(hash), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return database.BlockData{}, database.ErrNotFound
		}
		return database.BlockData{}, errors.Wrapf(err, "reading block %s", hash)
	}

	var blockData database.BlockData
	if err := json.Unmarshal(data, &blockData); err != nil {
		return database.BlockData{}, errors.Wrapf(err, "decoding block %s", hash)
	}

	return blockData, nil
}

// ForEach calls the function for every block in the database.
func (db *LevelDB) ForEach(fn func(blockData database.BlockData) error) error {
	iter := db.ldb.NewIterator(util.BytesPrefix(blockPrefix), nil)
	defer iter.Release()

	for iter.Next() {
		var blockData database.BlockData
		if err := json.Unmarshal(iter.Value(), &blockData); err != nil {
			return errors.Wrapf(err, "decoding block at key %x", iter.Key())
		}

		if err := fn(blockData); err != nil {
			return err
		}
	}

	return iter.Error()
}

// key forms the database key for the hash.
func key(hash signature.Digest) []byte {
	return append(append([]byte{}, blockPrefix...), hash[:]...)
}
