// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"
	"sort"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyFIFO       = "fifo"
	StrategyRoundRobin = "roundrobin"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFIFO:       fifoSelect,
	StrategyRoundRobin: roundRobinSelect,
}

// Pending is a transaction waiting in the mempool along with the order
// it arrived in.
type Pending struct {
	Seq uint64
	Tx  database.Tx
}

// Func defines a function that takes a mempool of transactions grouped by
// spender and selects howMany of them in an order based on the functions
// strategy. All selector functions MUST respect arrival order for each
// spender. Receiving -1 for howMany must return all the transactions in the
// strategies ordering.
type Func func(transactions map[database.AccountID][]Pending, howMany int) []database.Tx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// bySeq provides sorting support by the arrival order.
type bySeq []Pending

// Len returns the number of transactions in the list.
func (bs bySeq) Len() int {
	return len(bs)
}

// Less helps to sort the list by arrival in ascending order.
func (bs bySeq) Less(i, j int) bool {
	return bs[i].Seq < bs[j].Seq
}

// Swap moves transactions in the order of the arrival value.
func (bs bySeq) Swap(i, j int) {
	bs[i], bs[j] = bs[j], bs[i]
}

// take returns the first howMany transactions of the list.
func take(list []Pending, howMany int) []database.Tx {
	if howMany < 0 || howMany > len(list) {
		howMany = len(list)
	}

	final := make([]database.Tx, howMany)
	for i := range final {
		final[i] = list[i].Tx
	}

	return final
}

// sortAll sorts each spender's transactions by arrival.
func sortAll(m map[database.AccountID][]Pending) {
	for key := range m {
		if len(m[key]) > 1 {
			sort.Sort(bySeq(m[key]))
		}
	}
}
