// Package memory implements the ability to read and write blocks to memory
// using a map keyed by block hash.
package memory

import (
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// Memory represents the serialization implementation for reading and storing
// blocks in memory using a map. This implements the database.Storage and
// database.Walker interfaces.
type Memory struct {
	mu     sync.RWMutex
	blocks map[signature.Digest]database.BlockData
}

// New constructs an Memory value for use.
func New() (*Memory, error) {
	return &Memory{
		blocks: make(map[signature.Digest]database.BlockData),
	}, nil
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Put takes the specified block and stores it in memory.
func (m *Memory) Put(hash signature.Digest, blockData database.BlockData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks[hash] = blockData

	return nil
}

// Get locates and returns the contents of the block stored under the hash.
func (m *Memory) Get(hash signature.Digest) (database.BlockData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blockData, exists := m.blocks[hash]
	if !exists {
		return database.BlockData{}, database.ErrNotFound
	}

	return blockData, nil
}

// ForEach calls the function for every block held in memory.
func (m *Memory) ForEach(fn func(blockData database.BlockData) error) error {
	m.mu.RLock()
	blocks := make([]database.BlockData, 0, len(m.blocks))
	for _, blockData := range m.blocks {
		blocks = append(blocks, blockData)
	}
	m.mu.RUnlock()

	for _, blockData := range blocks {
		if err := fn(blockData); err != nil {
			return err
		}
	}

	return nil
}
