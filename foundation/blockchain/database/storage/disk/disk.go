// Package disk implements the ability to read and write blocks to disk
// writing each block to a separate file named after its hash.
package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// Disk represents the serialization implementation for reading and storing
// blocks in their own separate files on disk. This implements the
// database.Storage and database.Walker interfaces.
type Disk struct {
	dbPath string
}

// New constructs a Disk value for use.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, err
	}

	return &Disk{dbPath: dbPath}, nil
}

// Close in this implementation has nothing to do since a new file is
// written to disk for each new block and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// Put takes the specified block and stores it on disk in a file labeled
// with the block hash.
func (d *Disk) Put(hash signature.Digest, blockData database.BlockData) error {

	// Marshal the block for writing to disk in a more human readable format.
	data, err := json.MarshalIndent(blockData, "", "  ")
	if err != nil {
		return err
	}

	// Write to a temporary file first so a reader never sees a partial block.
	tmp := d.getPath(hash) + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmp, d.getPath(hash))
}

// Get searches the blockchain on disk to locate and return the
// contents of the block stored under the hash.
func (d *Disk) Get(hash signature.Digest) (database.BlockData, error) {

	// Open the block file for the specified hash.
	f, err := os.Open(d.getPath(hash))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return database.BlockData{}, database.ErrNotFound
		}
		return database.BlockData{}, err
	}
	defer f.Close()

	// Decode the contents of the block.
	var blockData database.BlockData
	if err := json.NewDecoder(f).Decode(&blockData); err != nil {
		return database.BlockData{}, fmt.Errorf("decoding block %s: %w", hash, err)
	}

	return blockData, nil
}

// ForEach calls the function for every block file in the folder.
func (d *Disk) ForEach(fn func(blockData database.BlockData) error) error {
	entries, err := os.ReadDir(d.dbPath)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".json" {
			continue
		}

		hash, err := signature.ToDigest(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}

		blockData, err := d.Get(hash)
		if err != nil {
			return err
		}

		if err := fn(blockData); err != nil {
			return err
		}
	}

	return nil
}

// getPath forms the path to the specified block.
func (d *Disk) getPath(hash signature.Digest) string {
	return path.Join(d.dbPath, fmt.Sprintf("%s.json", hash))
}
