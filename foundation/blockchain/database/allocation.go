package database

import (
	"fmt"
	"sort"

	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
)

// AllocationTrans converts the genesis balances into the transactions the
// genesis block records. Keys naming the same account in different casing
// are merged into one allocation. The order is by account so every node that
// reads the same genesis file builds the same block.
func AllocationTrans(gen genesis.Genesis) ([]Tx, error) {
	balances := make(map[AccountID]uint64, len(gen.Balances))
	for account, amount := range gen.Balances {
		accountID, err := ToAccountID(account)
		if err != nil {
			return nil, err
		}

		total := balances[accountID] + amount
		if total < amount {
			return nil, fmt.Errorf("allocation for %s overflows", accountID)
		}
		balances[accountID] = total
	}

	accounts := make([]AccountID, 0, len(balances))
	for accountID := range balances {
		accounts = append(accounts, accountID)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i] < accounts[j] })

	trans := make([]Tx, 0, len(accounts))
	for _, accountID := range accounts {
		tx, err := NewTx(nil, []Output{{Sender: accountID, Receiver: accountID, Amount: balances[accountID]}})
		if err != nil {
			return nil, err
		}

		trans = append(trans, tx)
	}

	return trans, nil
}
