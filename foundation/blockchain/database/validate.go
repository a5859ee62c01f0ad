package database

import (
	"bytes"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Rules represents the consensus parameters a block is validated against.
type Rules struct {
	Consensus        string
	MaxTarget        *big.Int
	Authorities      []*ecdsa.PublicKey
	MaxTransPerBlock int
	FutureTolerance  time.Duration
	Now              func() time.Time
}

// NewRules constructs the validation rules from the genesis parameters.
func NewRules(gen genesis.Genesis) (Rules, error) {
	authorities, err := gen.AuthorityKeys()
	if err != nil {
		return Rules{}, err
	}

	rules := Rules{
		Consensus:        gen.Consensus,
		MaxTarget:        gen.MaxTarget(),
		Authorities:      authorities,
		MaxTransPerBlock: gen.MaxTransPerBlock(),
		FutureTolerance:  gen.Tolerance(),
		Now:              time.Now,
	}

	return rules, nil
}

// Chain represents the behavior the validation pipeline requires from the
// store of accepted blocks.
type Chain interface {
	Lookup(hash signature.Digest) (Block, Ledger, bool)
	HasGenesis() bool
}

// =============================================================================

// ValidateBlock takes a block and validates it to be included into the
// blockchain. The checks run in a fixed order and the first failure is
// returned. On success the ledger that results from applying the block's
// transactions to its parent's ledger is returned. Nothing is mutated.
func (b Block) ValidateBlock(chain Chain, rules Rules, evHandler func(v string, args ...any)) (Ledger, error) {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	num := b.Header.Number

	if b.Header.IncludeMerkleRoot {
		ev("database: ValidateBlock: validate: blk[%d]: check: merkle root does match transactions", num)

		if root := b.CalcTransRoot(); root != b.Header.TransRoot {
			return Ledger{}, errors.Wrapf(ErrInvalidMerkleRoot, "got %s, exp %s", b.Header.TransRoot, root)
		}
	} else {
		ev("database: ValidateBlock: validate: blk[%d]: check: omitted merkle root is zero", num)

		if !b.Header.TransRoot.IsZero() {
			return Ledger{}, errors.Wrapf(ErrInvalidMerkleRoot, "root %s declared while omitted", b.Header.TransRoot)
		}
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: transaction count", num)

	if len(b.Trans) > rules.MaxTransPerBlock {
		return Ledger{}, errors.Wrapf(ErrTooManyTransactions, "got %d, max %d", len(b.Trans), rules.MaxTransPerBlock)
	}

	var parentLedger Ledger
	switch {
	case b.Header.Genesis:
		ev("database: ValidateBlock: validate: blk[%d]: check: genesis rules", num)

		if num != 0 {
			return Ledger{}, errors.Wrapf(ErrInvalidGenesis, "genesis height %d", num)
		}

		if b.Header.PrevBlockHash != signature.ZeroHash {
			return Ledger{}, errors.Wrapf(ErrInvalidGenesis, "genesis parent %s", b.Header.PrevBlockHash)
		}

		if chain.HasGenesis() {
			return Ledger{}, errors.Wrap(ErrInvalidGenesis, "chain already has a genesis block")
		}

		parentLedger = NewLedger()

	default:
		ev("database: ValidateBlock: validate: blk[%d]: check: parent block is known", num)

		parent, ledger, exists := chain.Lookup(b.Header.PrevBlockHash)
		if !exists {
			return Ledger{}, errors.Wrapf(ErrMissingParent, "parent %s", b.Header.PrevBlockHash)
		}

		ev("database: ValidateBlock: validate: blk[%d]: check: block number is the next number", num)

		if nextNumber := parent.Header.Number + 1; num != nextNumber {
			return Ledger{}, errors.Wrapf(ErrInvalidHeight, "got %d, exp %d", num, nextNumber)
		}

		ev("database: ValidateBlock: validate: blk[%d]: check: block's timestamp is not before parent and not in the future", num)

		if err := b.checkTimeStamp(parent, rules); err != nil {
			return Ledger{}, err
		}

		parentLedger = ledger
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: block seal", num)

	if err := b.verifySeal(rules); err != nil {
		return Ledger{}, err
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: transactions against the ledger", num)

	spent := make(SpentSet)
	allocated := make(map[signature.Digest]struct{})
	for i, tx := range b.Trans {
		var err error
		switch {
		case b.Header.Genesis:
			id := tx.ID()
			if _, exists := allocated[id]; exists {
				return Ledger{}, errors.Wrapf(ErrInvalidGenesis, "tx[%d] %s: duplicate allocation", i, id)
			}
			allocated[id] = struct{}{}
			err = parentLedger.ValidateAllocation(tx)
		default:
			err = parentLedger.ValidateTx(tx, spent)
		}

		if err != nil {
			return Ledger{}, errors.Wrapf(err, "tx[%d] %s", i, tx.ID())
		}
	}

	return parentLedger.Apply(b.Trans), nil
}

// checkTimeStamp makes sure the block is not older than its parent and not
// further ahead of the clock than the tolerance allows.
func (b Block) checkTimeStamp(parent Block, rules Rules) error {
	parentTime := time.Unix(int64(parent.Header.TimeStamp), 0)
	blockTime := time.Unix(int64(b.Header.TimeStamp), 0)

	if blockTime.Before(parentTime) {
		return errors.Wrapf(ErrInvalidTimestamp, "block timestamp is before parent block, parent %s, block %s", parentTime, blockTime)
	}

	now := time.Now
	if rules.Now != nil {
		now = rules.Now
	}

	if limit := now().Add(rules.FutureTolerance); blockTime.After(limit) {
		return errors.Wrapf(ErrInvalidTimestamp, "block timestamp is in the future, limit %s, block %s", limit, blockTime)
	}

	return nil
}

// verifySeal dispatches to the seal rule of the block's consensus variant.
func (b Block) verifySeal(rules Rules) error {
	if b.Header.Consensus != rules.Consensus {
		return errors.Wrapf(ErrInvalidSeal, "consensus %q, chain runs %q", b.Header.Consensus, rules.Consensus)
	}

	switch b.Header.Consensus {
	case genesis.ConsensusPOW:
		return b.verifyPOW(rules)

	case genesis.ConsensusPOA:
		return b.verifyPOA(rules)
	}

	return errors.Wrapf(ErrInvalidSeal, "unknown consensus %q", b.Header.Consensus)
}

// verifyPOW checks the block hash is at or below the declared target and
// the declared target is no easier than the chain allows.
func (b Block) verifyPOW(rules Rules) error {
	target := b.target()
	if target.Sign() <= 0 {
		return errors.Wrap(ErrInvalidSeal, "pow block requires a positive target")
	}

	if rules.MaxTarget != nil && target.Cmp(rules.MaxTarget) > 0 {
		return errors.Wrapf(ErrInvalidSeal, "target %s is easier than the chain target %s", b.Header.Target, rules.MaxTarget)
	}

	if len(b.Header.Signature) != 0 {
		return errors.Wrap(ErrInvalidSeal, "pow block carries a signature")
	}

	if hash := b.Hash(); !isHashSolved(target, hash) {
		return errors.Wrapf(ErrInvalidSeal, "hash %s is above target %s", hash, b.Header.Target)
	}

	return nil
}

// verifyPOA checks the signature over the signing hash was produced by one
// of the configured authorities.
func (b Block) verifyPOA(rules Rules) error {
	if b.target().Sign() != 0 {
		return errors.Wrapf(ErrInvalidSeal, "poa block declares target %s", b.Header.Target)
	}

	if b.Header.Nonce != 0 {
		return errors.Wrapf(ErrInvalidSeal, "poa block declares nonce %d", b.Header.Nonce)
	}

	publicKey, err := b.Signer()
	if err != nil {
		return errors.Wrapf(ErrInvalidSeal, "signature: %s", err)
	}

	signer := crypto.FromECDSAPub(publicKey)
	for _, authority := range rules.Authorities {
		if bytes.Equal(signer, crypto.FromECDSAPub(authority)) {
			return nil
		}
	}

	return errors.Wrapf(ErrInvalidSeal, "signer %s is not an authority", crypto.PubkeyToAddress(*publicKey))
}
