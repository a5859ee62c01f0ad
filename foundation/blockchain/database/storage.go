package database

import (
	"errors"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// ErrNotFound is returned by a Storage implementation when no block is
// stored under the requested hash.
var ErrNotFound = errors.New("block not found")

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading blocks by hash. Once Put
// succeeds, a later Get for the same hash returns the same value.
type Storage interface {
	Get(hash signature.Digest) (BlockData, error)
	Put(hash signature.Digest, blockData BlockData) error
	Close() error
}

// Walker interface represents the optional behavior of a Storage that can
// visit every stored block. The order of the visit is not defined.
type Walker interface {
	ForEach(fn func(blockData BlockData) error) error
}
