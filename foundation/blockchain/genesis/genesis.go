// Package genesis maintains access to the genesis file. The genesis file
// carries the chain parameters supplied at startup and the allocations
// recorded by the genesis block.
package genesis

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ardanlabs/ledger/foundation/validate"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Set of consensus mechanisms a chain can run.
const (
	ConsensusPOW = "pow"
	ConsensusPOA = "poa"
)

// Defaults applied to values left unset in the genesis file.
const (
	DefaultTransPerBlock   = 900
	DefaultFutureTolerance = 2 * time.Minute
)

// Genesis represents the genesis file.
type Genesis struct {
	Date            time.Time         `json:"date" validate:"required"`
	ChainID         uint16            `json:"chain_id"`                                       // The chain id represents an unique id for this running instance.
	Consensus       string            `json:"consensus" validate:"required,oneof=pow poa"`    // The seal mechanism every block must carry.
	TransPerBlock   uint16            `json:"trans_per_block" validate:"max=900"`             // The maximum number of transactions that can be in a block.
	Target          *hexutil.Big      `json:"target,omitempty"`                               // The easiest PoW target a block may declare.
	FutureTolerance uint64            `json:"future_tolerance"`                               // Seconds a block timestamp may run ahead of the clock.
	Authorities     []string          `json:"authorities,omitempty" validate:"dive,required"` // Hex encoded public keys allowed to sign PoA blocks.
	Balances        map[string]uint64 `json:"balances"`                                       // Allocations recorded by the genesis block.
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Save writes the genesis file to the specified path.
func (g Genesis) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Validate checks the genesis values are usable for running a chain.
func (g Genesis) Validate() error {
	if err := validate.Check(g); err != nil {
		return err
	}

	switch g.Consensus {
	case ConsensusPOW:
		if g.Target == nil || g.Target.ToInt().Sign() <= 0 {
			return fmt.Errorf("pow chain requires a positive target")
		}

	case ConsensusPOA:
		if len(g.Authorities) == 0 {
			return fmt.Errorf("poa chain requires at least one authority")
		}
		if _, err := g.AuthorityKeys(); err != nil {
			return err
		}
	}

	return nil
}

// MaxTransPerBlock returns the maximum number of transactions a block may
// carry.
func (g Genesis) MaxTransPerBlock() int {
	if g.TransPerBlock == 0 {
		return DefaultTransPerBlock
	}
	return int(g.TransPerBlock)
}

// MaxTarget returns the configured PoW target. PoA chains return zero.
func (g Genesis) MaxTarget() *big.Int {
	if g.Target == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(g.Target.ToInt())
}

// Tolerance returns how far ahead of the clock a block timestamp may be.
func (g Genesis) Tolerance() time.Duration {
	if g.FutureTolerance == 0 {
		return DefaultFutureTolerance
	}
	return time.Duration(g.FutureTolerance) * time.Second
}

// AuthorityKeys decodes the configured authority public keys.
func (g Genesis) AuthorityKeys() ([]*ecdsa.PublicKey, error) {
	keys := make([]*ecdsa.PublicKey, 0, len(g.Authorities))
	for _, hex := range g.Authorities {
		b, err := hexutil.Decode(hex)
		if err != nil {
			return nil, fmt.Errorf("decoding authority %q: %w", hex, err)
		}

		pk, err := crypto.UnmarshalPubkey(b)
		if err != nil {
			return nil, fmt.Errorf("parsing authority %q: %w", hex, err)
		}

		keys = append(keys, pk)
	}

	return keys, nil
}

// AuthorityHex encodes a public key in the format used by the genesis file.
func AuthorityHex(pk ecdsa.PublicKey) string {
	return hexutil.Encode(crypto.FromECDSAPub(&pk))
}
