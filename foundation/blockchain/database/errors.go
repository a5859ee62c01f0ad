package database

import (
	"github.com/pkg/errors"
)

// These values identify the specific rule a block or transaction violated.
// Callers check for them with errors.Is since context is wrapped around them.
var (
	// ErrInvalidMerkleRoot indicates the calculated merkle root does not
	// match the root declared in the block header.
	ErrInvalidMerkleRoot = newRuleError("InvalidMerkleRoot")

	// ErrTooManyTransactions indicates the block carries more transactions
	// than a block is allowed to hold.
	ErrTooManyTransactions = newRuleError("TooManyTransactions")

	// ErrInvalidGenesis indicates a genesis block that does not sit at height
	// zero on the sentinel parent, or a second genesis block.
	ErrInvalidGenesis = newRuleError("InvalidGenesis")

	// ErrMissingParent indicates the parent of the block is not known.
	ErrMissingParent = newRuleError("MissingParent")

	// ErrInvalidHeight indicates the block is not exactly one above its parent.
	ErrInvalidHeight = newRuleError("InvalidHeight")

	// ErrInvalidTimestamp indicates the block timestamp is before its parent
	// or too far in the future.
	ErrInvalidTimestamp = newRuleError("InvalidTimestamp")

	// ErrInvalidSeal indicates the nonce does not solve the target or the
	// signature was not produced by an authority.
	ErrInvalidSeal = newRuleError("InvalidSeal")

	// ErrUnresolvedInput indicates a transaction input references an output
	// that does not exist.
	ErrUnresolvedInput = newRuleError("UnresolvedInput")

	// ErrDoubleSpend indicates a transaction input references an output that
	// has already been spent on the chain or earlier in the same block.
	ErrDoubleSpend = newRuleError("DoubleSpend")

	// ErrInconsistentUsers indicates the inputs are not owned by one spender
	// or the outputs do not pay one receiver.
	ErrInconsistentUsers = newRuleError("InconsistentUsers")

	// ErrMoneyCreation indicates the outputs are worth more than the inputs.
	ErrMoneyCreation = newRuleError("MoneyCreation")

	// ErrMiningExhausted indicates the mining attempt bound was reached
	// without finding a nonce. The caller may retry with new parameters.
	ErrMiningExhausted = newRuleError("MiningExhausted")

	// ErrUnknownBlock indicates the requested block is not in the store.
	ErrUnknownBlock = newRuleError("UnknownBlock")
)

// RuleError identifies a rule violation. The value is comparable so wrapped
// errors can be matched with errors.Is.
type RuleError struct {
	message string
}

// Error implements the error interface.
func (e RuleError) Error() string {
	return e.message
}

func newRuleError(message string) RuleError {
	return RuleError{message: message}
}

// Kind returns the name of the rule violated by the error or an empty
// string when the error is not a rule error.
func Kind(err error) string {
	var re RuleError
	if !errors.As(err, &re) {
		return ""
	}
	return re.message
}

// IsRuleError reports whether the error is a rule violation.
func IsRuleError(err error) bool {
	var re RuleError
	return errors.As(err, &re)
}
