package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
)

// ErrNoTransactions is returned when a block is requested to be created
// and there are not enough transactions.
var ErrNoTransactions = errors.New("no transactions in mempool")

// ErrNoSigner is returned when a PoA block is requested and the node does
// not hold an authority key.
var ErrNoSigner = errors.New("node has no authority key")

// =============================================================================

// AddBlock validates the block against the chain and, when it passes, stores
// it and moves the head if the block's chain is now the heaviest. Adding a
// block that is already known does nothing. On failure nothing changes.
func (s *State) AddBlock(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addBlock(block, true)
}

// ProcessProposedBlock takes a block produced outside this node, adds it to
// the chain, and restarts any sealing work so it builds on the new head.
func (s *State) ProcessProposedBlock(block database.Block) error {
	s.evHandler("state: ProcessProposedBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.Header.PrevBlockHash, block.Hash(), len(block.Trans))
	defer s.evHandler("state: ProcessProposedBlock: completed: newBlk[%s]", block.Hash())

	if err := s.AddBlock(block); err != nil {
		return err
	}

	if s.Worker != nil {
		s.Worker.SignalCancelMining()
		s.Worker.SignalStartMining()
	}

	return nil
}

// SealNewBlock builds a block on the current head from the mempool, seals it
// with the chain's consensus, and adds it to the chain.
func (s *State) SealNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: SealNewBlock: check mempool count")

	if s.mempool.Count() == 0 {
		return database.Block{}, ErrNoTransactions
	}

	head, ledger := s.headAndLedger()
	if head == nil {
		return database.Block{}, errors.New("chain has no genesis block")
	}

	trans := s.pickValid(ledger)
	if len(trans) == 0 {
		return database.Block{}, ErrNoTransactions
	}

	var block database.Block
	var err error

	switch s.genesis.Consensus {
	case genesis.ConsensusPOW:
		s.evHandler("state: SealNewBlock: MINING: perform POW: trans[%d]", len(trans))

		block, err = database.POW(ctx, database.POWArgs{
			PrevBlock:         head,
			Target:            s.rules.MaxTarget,
			TimeStamp:         uint64(s.rules.Now().UTC().Unix()),
			IncludeMerkleRoot: s.includeMerkleRoot,
			Trans:             trans,
			Workers:           s.miningWorkers,
			MaxAttempts:       s.maxAttempts,
			EvHandler:         s.evHandler,
		})

	case genesis.ConsensusPOA:
		if s.signerKey == nil {
			return database.Block{}, ErrNoSigner
		}

		s.evHandler("state: SealNewBlock: SIGNING: perform POA: trans[%d]", len(trans))

		block, err = database.POA(database.POAArgs{
			PrevBlock:         head,
			TimeStamp:         uint64(s.rules.Now().UTC().Unix()),
			IncludeMerkleRoot: s.includeMerkleRoot,
			Trans:             trans,
			PrivateKey:        s.signerKey,
		})

	default:
		return database.Block{}, fmt.Errorf("unknown consensus %q", s.genesis.Consensus)
	}

	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: SealNewBlock: add block")

	if err := s.AddBlock(block); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// =============================================================================

// addBlock performs the work of AddBlock. The caller must hold the write
// lock. Replayed blocks are already in storage so they are not written.
func (s *State) addBlock(block database.Block, persist bool) error {
	hash := block.Hash()

	if _, exists := s.index.nodes[hash]; exists {
		s.evHandler("state: addBlock: blk[%s]: already known", hash)
		return nil
	}

	s.evHandler("state: addBlock: validate block: blk[%d]", block.Header.Number)

	ledger, err := block.ValidateBlock(s.index, s.rules, s.evHandler)
	if err != nil {
		return err
	}

	if persist {
		s.evHandler("state: addBlock: write to storage")

		blockData := database.NewBlockData(block)
		blockData.Seq = s.seq + 1

		if err := s.storage.Put(hash, blockData); err != nil {
			return fmt.Errorf("storing block %s: %w", hash, err)
		}
	}

	weight := new(big.Int).Set(block.Weight())
	parent, hasParent := s.index.nodes[block.Header.PrevBlockHash]
	if hasParent && !block.Header.Genesis {
		weight.Add(weight, parent.weight)
		parent.tip = false
	}

	s.seq++
	n := chainNode{
		block:  block,
		hash:   hash,
		ledger: ledger,
		weight: weight,
		seq:    s.seq,
		tip:    true,
	}

	s.index.nodes[hash] = &n
	if block.Header.Genesis {
		s.index.genesis = &n
	}

	// The earliest block to reach a weight keeps the head.
	if s.head == nil || n.weight.Cmp(s.head.weight) > 0 {
		if s.head != nil && s.head.hash != block.Header.PrevBlockHash {
			s.evHandler("state: addBlock: REORG: oldHead[%s]: newHead[%s]", s.head.hash, hash)
		}
		s.head = &n
	}

	s.evHandler("state: addBlock: remove from mempool")

	for _, tx := range block.Trans {
		s.mempool.Delete(tx)
	}

	s.blockEvent(block)

	return nil
}

// pickValid selects transactions from the mempool that validate against the
// ledger. Transactions that fail are dropped from the pool.
func (s *State) pickValid(ledger database.Ledger) []database.Tx {
	spent := make(database.SpentSet)

	var trans []database.Tx
	for _, tx := range s.mempool.PickBest(-1) {
		if len(trans) == s.rules.MaxTransPerBlock {
			break
		}

		if err := ledger.ValidateTx(tx, spent); err != nil {
			s.evHandler("state: pickValid: tx[%s]: dropped: %s", tx.ID(), err)
			s.mempool.Delete(tx)
			continue
		}

		trans = append(trans, tx)
	}

	return trans
}

// headAndLedger returns the current head block and its ledger.
func (s *State) headAndLedger() (*database.Block, database.Ledger) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.head == nil {
		return nil, database.NewLedger()
	}

	block := s.head.block
	return &block, s.head.ledger
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockHeaderJSON, err := json.Marshal(block.Header)
	if err != nil {
		blockHeaderJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	blockTransJSON, err := json.Marshal(block.Trans)
	if err != nil {
		blockTransJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: {"hash":%q,"header":%s,"trans":%s}`, block.Hash(), string(blockHeaderJSON), string(blockTransJSON))
}
