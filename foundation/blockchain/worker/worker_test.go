package worker_test

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/worker"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	alice database.AccountID = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"
	bob   database.AccountID = "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32"
)

func Test_Sealing(t *testing.T) {
	key, err := crypto.HexToECDSA("fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
	if err != nil {
		t.Fatalf("Should be able to load the private key: %s", err)
	}

	type table struct {
		name    string
		genesis genesis.Genesis
	}

	tt := []table{
		{
			name: "pow",
			genesis: genesis.Genesis{
				Date:      time.Now().UTC(),
				Consensus: genesis.ConsensusPOW,
				Target:    (*hexutil.Big)(new(big.Int).Lsh(big.NewInt(1), 250)),
				Balances:  map[string]uint64{string(alice): 1000},
			},
		},
		{
			name: "poa",
			genesis: genesis.Genesis{
				Date:        time.Now().UTC(),
				Consensus:   genesis.ConsensusPOA,
				Authorities: []string{genesis.AuthorityHex(key.PublicKey)},
				Balances:    map[string]uint64{string(alice): 1000},
			},
		},
		{
			name: "poa upper case authority",
			genesis: genesis.Genesis{
				Date:        time.Now().UTC(),
				Consensus:   genesis.ConsensusPOA,
				Authorities: []string{"0x" + strings.ToUpper(genesis.AuthorityHex(key.PublicKey)[2:])},
				Balances:    map[string]uint64{string(alice): 1000},
			},
		},
	}

	t.Log("Given the need to seal blocks in the background.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen running a %s worker.", testID, tst.name)
				{
					strg, err := memory.New()
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to open storage: %v", failed, testID, err)
					}

					st, err := state.New(state.Config{
						Genesis:           tst.genesis,
						Storage:           strg,
						SignerKey:         key,
						MiningWorkers:     2,
						IncludeMerkleRoot: true,
					})
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to construct the state: %v", failed, testID, err)
					}

					trans, err := database.AllocationTrans(tst.genesis)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to build the allocations: %v", failed, testID, err)
					}

					var gen database.Block
					switch tst.genesis.Consensus {
					case genesis.ConsensusPOW:
						gen, err = database.POW(t.Context(), database.POWArgs{Target: tst.genesis.MaxTarget(), IncludeMerkleRoot: true, Trans: trans, Workers: 2})
					default:
						gen, err = database.POA(database.POAArgs{IncludeMerkleRoot: true, Trans: trans, PrivateKey: key})
					}
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to seal the genesis block: %v", failed, testID, err)
					}

					if err := st.AddBlock(gen); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to add the genesis block: %v", failed, testID, err)
					}

					worker.Run(st, 50*time.Millisecond, func(v string, args ...any) { t.Logf(v, args...) })
					defer st.Shutdown()

					tx := database.Tx{
						Inputs:  []database.Input{{TxID: trans[0].ID(), Index: 0}},
						Outputs: []database.Output{{Sender: alice, Receiver: bob, Amount: 250}},
					}
					if err := st.UpsertMempool(tx); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to submit a transaction: %v", failed, testID, err)
					}

					deadline := time.Now().Add(10 * time.Second)
					for st.Balance(bob) == 0 && time.Now().Before(deadline) {
						time.Sleep(20 * time.Millisecond)
					}

					if st.Balance(bob) != 250 {
						t.Fatalf("\t%s\tTest %d:\tShould seal the transaction into a block.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould seal the transaction into a block.", success, testID)

					if head, _ := st.Head(); head.Header.Number != 1 {
						t.Fatalf("\t%s\tTest %d:\tShould move the head to height 1, got %d.", failed, testID, head.Header.Number)
					}
					t.Logf("\t%s\tTest %d:\tShould move the head to height 1.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}
