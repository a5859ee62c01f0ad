package selector

import (
	"sort"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// roundRobinSelect returns one transaction per spender per row so a single
// busy spender can't fill a block, while respecting the arrival order for
// each spender.
var roundRobinSelect = func(m map[database.AccountID][]Pending, howMany int) []database.Tx {

	/*
		Bill: {Seq: 4}, {Seq: 1}
		Pavl: {Seq: 2}, {Seq: 5}
		Edua: {Seq: 3}
	*/

	sortAll(m)

	/*
		Bill: {Seq: 1}, {Seq: 4}
		Pavl: {Seq: 2}, {Seq: 5}
		Edua: {Seq: 3}
	*/

	// Pick the first transaction in the slice for each spender. Each iteration
	// represents a new row of selections. Keep doing that until all the
	// transactions have been selected.
	var rows [][]Pending
	for {
		var row []Pending
		for key := range m {
			if len(m[key]) > 0 {
				row = append(row, m[key][0])
				m[key] = m[key][1:]
			}
		}
		if row == nil {
			break
		}
		sort.Sort(bySeq(row))
		rows = append(rows, row)
	}

	/*
		0: Bill: {Seq: 1}, Pavl: {Seq: 2}, Edua: {Seq: 3}
		1: Bill: {Seq: 4}, Pavl: {Seq: 5}
	*/

	var final []Pending
	for _, row := range rows {
		final = append(final, row...)
	}

	return take(final, howMany)
}
