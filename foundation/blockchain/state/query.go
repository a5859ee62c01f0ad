package state

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// GetChain returns the blocks from the specified block back to genesis by
// following the parent hashes through storage. Every call performs a fresh
// traversal.
func (s *State) GetChain(hash signature.Digest) ([]database.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.index.nodes[hash]; !exists {
		return nil, fmt.Errorf("block %s: %w", hash, database.ErrUnknownBlock)
	}

	var chain []database.Block
	for {
		blockData, err := s.storage.Get(hash)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, fmt.Errorf("block %s: %w", hash, database.ErrUnknownBlock)
			}
			return nil, fmt.Errorf("reading block %s: %w", hash, err)
		}

		block, err := database.ToBlock(blockData)
		if err != nil {
			return nil, err
		}

		chain = append(chain, block)

		if block.Header.Genesis {
			return chain, nil
		}

		hash = block.Header.PrevBlockHash
	}
}

// Genesis returns a copy of the genesis information.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// Head returns the block at the head of the chain. The boolean is false
// when no genesis block has been accepted.
func (s *State) Head() (database.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.head == nil {
		return database.Block{}, false
	}
	return s.head.block, true
}

// Ledger returns the ledger snapshot for the chain ending at the head.
func (s *State) Ledger() database.Ledger {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.head == nil {
		return database.NewLedger()
	}
	return s.head.ledger
}

// Block returns the accepted block with the specified hash.
func (s *State) Block(hash signature.Digest) (database.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, exists := s.index.nodes[hash]
	if !exists {
		return database.Block{}, fmt.Errorf("block %s: %w", hash, database.ErrUnknownBlock)
	}
	return n.block, nil
}

// Branches returns the tip of every branch the store retains, heaviest
// first. Equal weights are ordered by when the tip was accepted.
func (s *State) Branches() []database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tips []*chainNode
	for _, n := range s.index.nodes {
		if n.tip {
			tips = append(tips, n)
		}
	}

	sort.Slice(tips, func(i, j int) bool {
		if c := tips[i].weight.Cmp(tips[j].weight); c != 0 {
			return c > 0
		}
		return tips[i].seq < tips[j].seq
	})

	blocks := make([]database.Block, len(tips))
	for i, n := range tips {
		blocks[i] = n.block
	}

	return blocks
}

// Balance returns the value the account can spend on the head chain.
func (s *State) Balance(account database.AccountID) uint64 {
	return s.Ledger().Balance(account)
}

// UnspentFor returns the outputs the account can spend on the head chain.
func (s *State) UnspentFor(account database.AccountID) []database.UTXO {
	return s.Ledger().UnspentFor(account)
}

// MempoolLength returns the current length of the mempool.
func (s *State) MempoolLength() int {
	return s.mempool.Count()
}

// Mempool returns a copy of the mempool in selection order.
func (s *State) Mempool() []database.Tx {
	return s.mempool.PickBest(-1)
}

// SignerAuthority returns the authority public key this node signs with in
// the genesis file format, or an empty string when it holds no key.
func (s *State) SignerAuthority() string {
	if s.signerKey == nil {
		return ""
	}
	return genesis.AuthorityHex(s.signerKey.PublicKey)
}

// HeadNumber returns the height of the head block. The boolean is false
// when no genesis block has been accepted.
func (s *State) HeadNumber() (uint64, bool) {
	head, ok := s.Head()
	return head.Header.Number, ok
}

// BranchCount returns the number of branch tips the store retains.
func (s *State) BranchCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	for _, n := range s.index.nodes {
		if n.tip {
			count++
		}
	}
	return count
}
