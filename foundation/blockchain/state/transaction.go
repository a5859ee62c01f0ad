package state

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// UpsertMempool accepts a transaction for inclusion in a future block. The
// transaction must validate against the ledger at the head.
func (s *State) UpsertMempool(tx database.Tx) error {
	if err := s.Ledger().ValidateTx(tx, make(database.SpentSet)); err != nil {
		return err
	}

	n := s.mempool.Upsert(tx)
	s.evHandler("state: UpsertMempool: tx[%s]: pool[%d]", tx.ID(), n)

	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}

	return nil
}
