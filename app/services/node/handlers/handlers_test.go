package handlers_test

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/app/services/node/handlers"
	"github.com/ardanlabs/ledger/business/sys/metrics"
	v1 "github.com/ardanlabs/ledger/business/web/v1"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	authorityHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

	alice database.AccountID = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"
	bob   database.AccountID = "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32"
)

type node struct {
	st      *state.State
	public  http.Handler
	private http.Handler
	debug   http.Handler
	alloc   database.Tx
}

func newNode(t *testing.T) node {
	privateKey, err := crypto.HexToECDSA(authorityHexKey)
	require.NoError(t, err)

	gen := genesis.Genesis{
		Date:        time.Now().Add(-time.Hour).UTC().Truncate(time.Second),
		Consensus:   genesis.ConsensusPOA,
		Authorities: []string{genesis.AuthorityHex(privateKey.PublicKey)},
		Balances:    map[string]uint64{string(alice): 1000},
	}

	strg, err := memory.New()
	require.NoError(t, err)

	st, err := state.New(state.Config{
		Genesis:           gen,
		Storage:           strg,
		SignerKey:         privateKey,
		IncludeMerkleRoot: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Shutdown() })

	block, err := database.SealGenesis(context.Background(), database.GenesisArgs{
		Genesis:           gen,
		IncludeMerkleRoot: true,
		PrivateKey:        privateKey,
	})
	require.NoError(t, err)
	require.NoError(t, st.AddBlock(block))

	ns, err := nameservice.New(t.TempDir())
	require.NoError(t, err)

	evts := events.New()
	t.Cleanup(evts.Shutdown)

	m := metrics.New()
	m.RegisterChain(st)
	m.RegisterEvents(evts)

	cfg := handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		State:    st,
		NS:       ns,
		Evts:     evts,
		Metrics:  m,
	}

	return node{
		st:      st,
		public:  handlers.PublicMux(cfg),
		private: handlers.PrivateMux(cfg),
		debug:   handlers.DebugMux("test", cfg.Log, st, m),
		alloc:   block.Trans[0],
	}
}

func call(t *testing.T, h http.Handler, method string, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	return w
}

func submission(txID string, to database.AccountID, amount uint64) map[string]any {
	return map[string]any{
		"inputs": []map[string]any{{"tx_id": txID, "index": 0}},
		"outputs": []map[string]any{
			{"sender": alice, "receiver": to, "amount": amount},
		},
	}
}

// =============================================================================

func Test_PublicRoutes(t *testing.T) {
	n := newNode(t)

	t.Log("Given the need to query and extend the chain over http.")
	{
		t.Logf("\tTest 0:\tWhen reading the head and a balance of a fresh chain.")
		{
			w := call(t, n.public, http.MethodGet, "/v1/head", nil)
			require.Equal(t, http.StatusOK, w.Code)

			var head database.BlockData
			require.NoError(t, json.NewDecoder(w.Body).Decode(&head))
			require.True(t, head.Header.Genesis)
			t.Logf("\t%s\tTest 0:\tShould get the genesis block as head.", success)

			w = call(t, n.public, http.MethodGet, "/v1/balance/"+string(alice), nil)
			require.Equal(t, http.StatusOK, w.Code)

			var bal struct {
				Balance uint64 `json:"balance"`
			}
			require.NoError(t, json.NewDecoder(w.Body).Decode(&bal))
			require.Equal(t, uint64(1000), bal.Balance)
			t.Logf("\t%s\tTest 0:\tShould see the genesis allocation.", success)
		}

		t.Logf("\tTest 1:\tWhen submitting a transaction and sealing a block.")
		{
			w := call(t, n.public, http.MethodPost, "/v1/tx/submit", submission(n.alloc.ID().String(), bob, 250))
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest 1:\tShould accept the transaction: %d %s", failed, w.Code, w.Body)
			}
			t.Logf("\t%s\tTest 1:\tShould accept the transaction.", success)

			w = call(t, n.public, http.MethodGet, "/v1/tx/uncommitted/list", nil)
			require.Equal(t, http.StatusOK, w.Code)

			var pool []json.RawMessage
			require.NoError(t, json.NewDecoder(w.Body).Decode(&pool))
			require.Len(t, pool, 1)
			t.Logf("\t%s\tTest 1:\tShould see the transaction in the mempool.", success)

			w = call(t, n.private, http.MethodPost, "/v1/node/block/seal", nil)
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest 1:\tShould seal a block: %d %s", failed, w.Code, w.Body)
			}

			var sealed database.BlockData
			require.NoError(t, json.NewDecoder(w.Body).Decode(&sealed))
			require.Equal(t, uint64(1), sealed.Header.Number)
			t.Logf("\t%s\tTest 1:\tShould seal a block at height 1.", success)

			require.Equal(t, uint64(250), n.st.Balance(bob))
			require.Zero(t, n.st.MempoolLength())
			t.Logf("\t%s\tTest 1:\tShould move the value to bob.", success)

			w = call(t, n.public, http.MethodGet, "/v1/chain/"+sealed.Hash.String(), nil)
			require.Equal(t, http.StatusOK, w.Code)

			var chain []database.BlockData
			require.NoError(t, json.NewDecoder(w.Body).Decode(&chain))
			require.Len(t, chain, 2)
			require.Equal(t, sealed.Hash, chain[0].Hash)
			require.True(t, chain[1].Header.Genesis)
			t.Logf("\t%s\tTest 1:\tShould get the chain back to genesis.", success)

			path := "/v1/proof/" + sealed.Hash.String() + "/" + sealed.Trans[0].ID().String()
			w = call(t, n.public, http.MethodGet, path, nil)
			require.Equal(t, http.StatusOK, w.Code)
			t.Logf("\t%s\tTest 1:\tShould get a merkle proof for the transaction.", success)
		}

		t.Logf("\tTest 2:\tWhen submitting a transaction that spends a spent output.")
		{
			w := call(t, n.public, http.MethodPost, "/v1/tx/submit", submission(n.alloc.ID().String(), bob, 10))
			require.Equal(t, http.StatusBadRequest, w.Code)

			var er v1.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&er))
			require.Equal(t, "DoubleSpend", er.Kind)
			t.Logf("\t%s\tTest 2:\tShould reject the transaction as a double spend.", success)
		}

		t.Logf("\tTest 3:\tWhen asking for a block that is not in the store.")
		{
			unknown := "0x" + strings.Repeat("ab", 32)
			w := call(t, n.public, http.MethodGet, "/v1/chain/"+unknown, nil)
			require.Equal(t, http.StatusNotFound, w.Code)
			t.Logf("\t%s\tTest 3:\tShould get a not found response.", success)
		}

		t.Logf("\tTest 4:\tWhen submitting a transaction without outputs.")
		{
			body := map[string]any{"inputs": []any{}, "outputs": []any{}}
			w := call(t, n.public, http.MethodPost, "/v1/tx/submit", body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var er v1.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&er))
			require.NotEmpty(t, er.Fields)
			t.Logf("\t%s\tTest 4:\tShould get a field validation error.", success)
		}
	}
}

func Test_PrivateRoutes(t *testing.T) {
	n := newNode(t)

	t.Log("Given the need to operate a node over http.")
	{
		t.Logf("\tTest 0:\tWhen sealing with an empty mempool.")
		{
			w := call(t, n.private, http.MethodPost, "/v1/node/block/seal", nil)
			require.Equal(t, http.StatusConflict, w.Code)
			t.Logf("\t%s\tTest 0:\tShould get a conflict response.", success)
		}

		t.Logf("\tTest 1:\tWhen proposing a block with a broken seal.")
		{
			head, _ := n.st.Head()
			block, err := database.POA(database.POAArgs{
				PrevBlock:         &head,
				TimeStamp:         uint64(time.Now().Unix()),
				IncludeMerkleRoot: true,
				PrivateKey:        mustOutsider(t),
			})
			require.NoError(t, err)

			w := call(t, n.private, http.MethodPost, "/v1/node/block/propose", database.NewBlockData(block))
			require.Equal(t, http.StatusBadRequest, w.Code)
			t.Logf("\t%s\tTest 1:\tShould reject the block.", success)
		}

		t.Logf("\tTest 2:\tWhen reading the node status and metrics.")
		{
			w := call(t, n.private, http.MethodGet, "/v1/node/status", nil)
			require.Equal(t, http.StatusOK, w.Code)
			require.Contains(t, w.Body.String(), `"consensus":"poa"`)
			t.Logf("\t%s\tTest 2:\tShould get the node status.", success)

			w = call(t, n.debug, http.MethodGet, "/metrics", nil)
			require.Equal(t, http.StatusOK, w.Code)
			require.Contains(t, w.Body.String(), "ledger_blocks_total")
			require.Contains(t, w.Body.String(), "ledger_head_number 0")
			require.Contains(t, w.Body.String(), "ledger_event_subscribers 0")
			t.Logf("\t%s\tTest 2:\tShould expose the chain metrics.", success)

			w = call(t, n.debug, http.MethodGet, "/debug/readiness", nil)
			require.Equal(t, http.StatusOK, w.Code)
			t.Logf("\t%s\tTest 2:\tShould report the node as ready.", success)
		}
	}
}

func mustOutsider(t *testing.T) *ecdsa.PrivateKey {
	privateKey, err := crypto.HexToECDSA("8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0")
	require.NoError(t, err)
	return privateKey
}
