// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for sealing blocks.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining()
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Genesis           genesis.Genesis
	Storage           database.Storage
	SelectStrategy    string
	SignerKey         *ecdsa.PrivateKey // Authority key used to sign PoA blocks.
	MiningWorkers     int
	MaxAttempts       uint64
	IncludeMerkleRoot bool
	EvHandler         EventHandler
	Now               func() time.Time
}

// chainNode is a block accepted into the store along with the ledger that
// results from the path ending at it.
type chainNode struct {
	block  database.Block
	hash   signature.Digest
	ledger database.Ledger
	weight *big.Int
	seq    uint64
	tip    bool
}

// index holds every accepted block by hash. It implements the database.Chain
// interface for the validation pipeline.
type index struct {
	nodes   map[signature.Digest]*chainNode
	genesis *chainNode
}

// Lookup returns the block and the ledger at that block.
func (idx *index) Lookup(hash signature.Digest) (database.Block, database.Ledger, bool) {
	n, exists := idx.nodes[hash]
	if !exists {
		return database.Block{}, database.Ledger{}, false
	}
	return n.block, n.ledger, true
}

// HasGenesis reports whether a genesis block has been accepted.
func (idx *index) HasGenesis() bool {
	return idx.genesis != nil
}

// =============================================================================

// State manages the blockchain database.
type State struct {
	mu sync.RWMutex

	genesis   genesis.Genesis
	rules     database.Rules
	evHandler EventHandler
	storage   database.Storage
	mempool   *mempool.Mempool

	signerKey         *ecdsa.PrivateKey
	miningWorkers     int
	maxAttempts       uint64
	includeMerkleRoot bool

	index *index
	head  *chainNode
	seq   uint64

	Worker Worker
}

// New constructs a new blockchain for data management. When the storage can
// enumerate its blocks, they are replayed through the validation pipeline so
// the chain picks up where it left off.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	rules, err := database.NewRules(cfg.Genesis)
	if err != nil {
		return nil, fmt.Errorf("genesis rules: %w", err)
	}
	if cfg.Now != nil {
		rules.Now = cfg.Now
	}

	strategy := cfg.SelectStrategy
	if strategy == "" {
		strategy = "fifo"
	}

	// Construct a mempool with the specified select strategy.
	mempool, err := mempool.NewWithStrategy(strategy)
	if err != nil {
		return nil, err
	}

	state := State{
		genesis:   cfg.Genesis,
		rules:     rules,
		evHandler: ev,
		storage:   cfg.Storage,
		mempool:   mempool,

		signerKey:         cfg.SignerKey,
		miningWorkers:     cfg.MiningWorkers,
		maxAttempts:       cfg.MaxAttempts,
		includeMerkleRoot: cfg.IncludeMerkleRoot,

		index: &index{nodes: make(map[signature.Digest]*chainNode)},
	}

	if err := state.replay(); err != nil {
		return nil, err
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	// Make sure the database is properly closed.
	return s.storage.Close()
}

// =============================================================================

// replay loads every stored block back into the index.
func (s *State) replay() error {
	walker, ok := s.storage.(database.Walker)
	if !ok {
		return nil
	}

	type stored struct {
		block database.Block
		seq   uint64
	}

	var blocks []stored
	f := func(blockData database.BlockData) error {
		block, err := database.ToBlock(blockData)
		if err != nil {
			return err
		}
		blocks = append(blocks, stored{block: block, seq: blockData.Seq})
		return nil
	}

	if err := walker.ForEach(f); err != nil {
		return fmt.Errorf("reading stored blocks: %w", err)
	}

	// Blocks go back in the order they were first accepted so equal weight
	// branches resolve to the same head. Parents always precede children in
	// that order. Blocks stored without a sequence fall back to height.
	sort.SliceStable(blocks, func(i, j int) bool {
		bi, bj := blocks[i], blocks[j]
		if bi.seq != bj.seq {
			return bi.seq < bj.seq
		}
		if bi.block.Header.Number != bj.block.Header.Number {
			return bi.block.Header.Number < bj.block.Header.Number
		}
		if bi.block.Header.TimeStamp != bj.block.Header.TimeStamp {
			return bi.block.Header.TimeStamp < bj.block.Header.TimeStamp
		}
		hi, hj := bi.block.Hash(), bj.block.Hash()
		return hi.String() < hj.String()
	})

	s.evHandler("state: replay: started: blocks[%d]", len(blocks))
	defer s.evHandler("state: replay: completed")

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sb := range blocks {
		if err := s.addBlock(sb.block, false); err != nil {
			return fmt.Errorf("replaying block %d %s: %w", sb.block.Header.Number, sb.block.Hash(), err)
		}
		if sb.seq > s.seq {
			s.seq = sb.seq
		}
	}

	return nil
}
