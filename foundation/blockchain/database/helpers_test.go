package database_test

import (
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	authorityHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	outsiderHexKey  = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
)

const (
	alice database.AccountID = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"
	bob   database.AccountID = "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32"
	carol database.AccountID = "0xFef311483Cc040e1A89fb9bb469eeB8A70935EF8"
)

// genesisTime is the timestamp every test chain starts at.
const genesisTime = 1_700_000_000

// =============================================================================

// testChain is a minimal block store for driving the validation pipeline.
type testChain struct {
	blocks  map[signature.Digest]database.Block
	ledgers map[signature.Digest]database.Ledger
}

func newTestChain() *testChain {
	return &testChain{
		blocks:  make(map[signature.Digest]database.Block),
		ledgers: make(map[signature.Digest]database.Ledger),
	}
}

func (c *testChain) Lookup(hash signature.Digest) (database.Block, database.Ledger, bool) {
	block, exists := c.blocks[hash]
	if !exists {
		return database.Block{}, database.Ledger{}, false
	}
	return block, c.ledgers[hash], true
}

func (c *testChain) HasGenesis() bool {
	for _, block := range c.blocks {
		if block.Header.Genesis {
			return true
		}
	}
	return false
}

func (c *testChain) accept(t *testing.T, block database.Block, rules database.Rules) database.Ledger {
	t.Helper()

	ledger, err := block.ValidateBlock(c, rules, nil)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to accept block %d: %v", failed, block.Header.Number, err)
	}

	hash := block.Hash()
	c.blocks[hash] = block
	c.ledgers[hash] = ledger

	return ledger
}

// =============================================================================

func mustKey(t *testing.T, hex string) *ecdsa.PrivateKey {
	t.Helper()

	pk, err := crypto.HexToECDSA(hex)
	if err != nil {
		t.Fatalf("Should be able to load a private key: %s", err)
	}
	return pk
}

func poaRules(t *testing.T) database.Rules {
	return database.Rules{
		Consensus:        genesis.ConsensusPOA,
		Authorities:      []*ecdsa.PublicKey{&mustKey(t, authorityHexKey).PublicKey},
		MaxTransPerBlock: genesis.DefaultTransPerBlock,
		FutureTolerance:  genesis.DefaultFutureTolerance,
		Now:              func() time.Time { return time.Unix(genesisTime+3600, 0) },
	}
}

// easyTarget is solved by roughly one in sixteen hashes.
var easyTarget = new(big.Int).Lsh(big.NewInt(1), 252)

func powRules() database.Rules {
	return database.Rules{
		Consensus:        genesis.ConsensusPOW,
		MaxTarget:        new(big.Int).Lsh(big.NewInt(1), 255),
		MaxTransPerBlock: genesis.DefaultTransPerBlock,
		FutureTolerance:  genesis.DefaultFutureTolerance,
		Now:              func() time.Time { return time.Unix(genesisTime+3600, 0) },
	}
}

func allocation(to database.AccountID, amount uint64) database.Tx {
	return database.Tx{
		Outputs: []database.Output{{Sender: to, Receiver: to, Amount: amount}},
	}
}

func spend(from database.AccountID, to database.AccountID, amount uint64, inputs ...database.Input) database.Tx {
	return database.Tx{
		Inputs:  inputs,
		Outputs: []database.Output{{Sender: from, Receiver: to, Amount: amount}},
	}
}

func input(tx database.Tx, index uint32) database.Input {
	return database.Input{TxID: tx.ID(), Index: index}
}

func signedBlock(t *testing.T, prev *database.Block, timeStamp uint64, trans ...database.Tx) database.Block {
	t.Helper()

	block, err := database.POA(database.POAArgs{
		PrevBlock:         prev,
		TimeStamp:         timeStamp,
		IncludeMerkleRoot: true,
		Trans:             trans,
		PrivateKey:        mustKey(t, authorityHexKey),
	})
	if err != nil {
		t.Fatalf("Should be able to sign a block: %s", err)
	}
	return block
}
