// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// Mempool represents a cache of transactions waiting to be sealed into a
// block, keyed by transaction id.
type Mempool struct {
	pool     map[signature.Digest]selector.Pending
	seq      uint64
	mu       sync.RWMutex
	selectFn selector.Func
}

// New constructs a new mempool using the default select strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategyFIFO)
}

// NewWithStrategy constructs a new mempool with specified select strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[signature.Digest]selector.Pending),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds a transaction to the mempool. A transaction already in the
// pool keeps its original place in line.
func (mp *Mempool) Upsert(tx database.Tx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	id := tx.ID()
	if _, exists := mp.pool[id]; exists {
		return len(mp.pool)
	}

	mp.seq++
	mp.pool[id] = selector.Pending{Seq: mp.seq, Tx: tx}

	return len(mp.pool)
}

// Delete removes a transaction from the mempool.
func (mp *Mempool) Delete(tx database.Tx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, tx.ID())
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[signature.Digest]selector.Pending)
}

// PickBest uses the configured select strategy to return the next set
// of transactions for the next block. Pass -1 for all the transactions.
func (mp *Mempool) PickBest(howMany int) []database.Tx {

	// Group the transactions by spender.
	m := make(map[database.AccountID][]selector.Pending)
	mp.mu.RLock()
	{
		for _, pending := range mp.pool {
			spender := spenderOf(pending.Tx)
			m[spender] = append(m[spender], pending)
		}
	}
	mp.mu.RUnlock()

	return mp.selectFn(m, howMany)
}

// =============================================================================

// spenderOf returns the account paying for the transaction.
func spenderOf(tx database.Tx) database.AccountID {
	if len(tx.Outputs) == 0 {
		return ""
	}
	return tx.Outputs[0].Sender
}
