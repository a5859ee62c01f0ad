package selector

import (
	"sort"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// fifoSelect returns transactions in the order they arrived regardless of
// the spender.
var fifoSelect = func(m map[database.AccountID][]Pending, howMany int) []database.Tx {
	var all []Pending
	for _, list := range m {
		all = append(all, list...)
	}

	sort.Sort(bySeq(all))

	return take(all, howMany)
}
