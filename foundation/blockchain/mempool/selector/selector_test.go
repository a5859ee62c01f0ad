package selector_test

import (
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool/selector"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	bill  database.AccountID = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"
	pavel database.AccountID = "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32"
	ed    database.AccountID = "0xFef311483Cc040e1A89fb9bb469eeB8A70935EF8"
)

func pending(seq uint64, from database.AccountID) selector.Pending {
	tx := database.Tx{
		Outputs: []database.Output{{Sender: from, Receiver: from, Amount: seq}},
	}
	return selector.Pending{Seq: seq, Tx: tx}
}

func Test_Select(t *testing.T) {
	type table struct {
		name     string
		strategy string
		howMany  int
		best     []uint64
	}

	tt := []table{
		{name: "fifo-all", strategy: selector.StrategyFIFO, howMany: -1, best: []uint64{1, 2, 3, 4, 5}},
		{name: "fifo-two", strategy: selector.StrategyFIFO, howMany: 2, best: []uint64{1, 2}},
		{name: "fifo-more", strategy: selector.StrategyFIFO, howMany: 10, best: []uint64{1, 2, 3, 4, 5}},
		{name: "roundrobin-all", strategy: selector.StrategyRoundRobin, howMany: -1, best: []uint64{1, 2, 5, 3, 4}},
		{name: "roundrobin-three", strategy: selector.StrategyRoundRobin, howMany: 3, best: []uint64{1, 2, 5}},
	}

	t.Log("Given the need to select transactions from the mempool.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen using the %s strategy for %d transactions.", testID, tst.strategy, tst.howMany)
				{
					m := map[database.AccountID][]selector.Pending{
						bill:  {pending(3, bill), pending(1, bill)},
						pavel: {pending(2, pavel), pending(4, pavel)},
						ed:    {pending(5, ed)},
					}

					fn, err := selector.Retrieve(tst.strategy)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to retrieve the strategy: %v", failed, testID, err)
					}

					trans := fn(m, tst.howMany)
					if len(trans) != len(tst.best) {
						t.Fatalf("\t%s\tTest %d:\tShould get %d transactions, got %d", failed, testID, len(tst.best), len(trans))
					}

					for i, tx := range trans {
						if got := tx.Outputs[0].Amount; got != tst.best[i] {
							t.Logf("\t%s\tTest %d:\tgot: %d", failed, testID, got)
							t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, tst.best[i])
							t.Fatalf("\t%s\tTest %d:\tShould get back the right order at position %d.", failed, testID, i)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould get back the right order.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Retrieve(t *testing.T) {
	if _, err := selector.Retrieve("tip"); err == nil {
		t.Fatalf("Should not be able to retrieve an unknown strategy.")
	}
}
