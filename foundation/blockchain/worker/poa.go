package worker

import (
	"context"
	"errors"
	"hash/fnv"
	"sort"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
)

// CORE NOTE: The POA signing operation is managed by this function which runs
// on it's own goroutine. The node starts a loop that is on a cycle timer. At
// the beginning of each cycle the selection algorithm is executed which
// determines if this node needs to sign the next block. If this node is not
// selected, it waits for the next cycle to check the selection again.

// poaOperations handles signing.
func (w *Worker) poaOperations() {
	w.evHandler("worker: poaOperations: G started")
	defer w.evHandler("worker: poaOperations: G completed")

	ticker := time.NewTicker(w.cycle)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !w.isShutdown() {
				w.runPoaOperation()
			}
		case <-w.startMining:
			// Blocks are signed on the cycle.
		case <-w.shut:
			w.evHandler("worker: poaOperations: received shut signal")
			return
		}
	}
}

// runPoaOperation takes the transactions from the mempool and signs a new
// block onto the head of the chain.
func (w *Worker) runPoaOperation() {
	w.evHandler("worker: runPoaOperation: started")
	defer w.evHandler("worker: runPoaOperation: completed")

	// Run the selection algorithm.
	selected := w.selection()
	w.evHandler("worker: runPoaOperation: SELECTED: %s", selected)

	// If we are not selected, return and wait for the next cycle.
	if selected == "" || selected != w.state.SignerAuthority() {
		return
	}

	// Make sure there are transactions in the mempool.
	length := w.state.MempoolLength()
	if length == 0 {
		w.evHandler("worker: runPoaOperation: no transactions to sign: Txs[%d]", length)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.cycle)
	defer cancel()

	block, err := w.state.SealNewBlock(ctx)
	if err != nil {
		switch {
		case errors.Is(err, state.ErrNoTransactions):
			w.evHandler("worker: runPoaOperation: WARNING: no transactions in mempool")
		default:
			w.evHandler("worker: runPoaOperation: ERROR: %s", err)
		}
		return
	}

	w.evHandler("worker: runPoaOperation: SIGNED: blk[%d]: %s", block.Header.Number, block.Hash())
}

// selection selects the authority that signs the next block.
func (w *Worker) selection() string {

	// The genesis file may carry any hex casing, so compare the canonical
	// encoding of each key.
	keys, err := w.state.Genesis().AuthorityKeys()
	if err != nil || len(keys) == 0 {
		return ""
	}

	// Sort the authorities so every node sees the same list.
	names := make([]string, len(keys))
	for i, pk := range keys {
		names[i] = genesis.AuthorityHex(*pk)
	}
	sort.Strings(names)

	// Based on the head block, pick an index number from the registry.
	head, _ := w.state.Head()
	h := fnv.New32a()
	h.Write([]byte(head.Hash().String()))
	integerHash := h.Sum32()
	i := integerHash % uint32(len(names))

	// Return the authority selected.
	return names[i]
}
