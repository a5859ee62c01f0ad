package database

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// Output is a spendable amount of value paid by a sender to a receiver.
type Output struct {
	Sender   AccountID `json:"sender" validate:"required"`   // Account that paid the value.
	Receiver AccountID `json:"receiver" validate:"required"` // Account that can spend the value.
	Amount   uint64    `json:"amount"`                       // Amount of value held by the output.
}

// Input references an output created by an earlier transaction.
type Input struct {
	TxID  signature.Digest `json:"tx_id"` // Id of the transaction that created the output.
	Index uint32           `json:"index"` // Position of the output in that transaction.
}

// OutPoint returns the location of the output this input spends.
func (in Input) OutPoint() OutPoint {
	return OutPoint{TxID: in.TxID, Index: in.Index}
}

// =============================================================================

// Tx is the transactional information between two parties. It consumes a
// set of outputs and produces a new set of outputs.
type Tx struct {
	Inputs  []Input  `json:"inputs"`
	Outputs []Output `json:"outputs"`
}

// NewTx constructs a new transaction. The accounts of every output are
// validated and stored in checksummed form.
func NewTx(inputs []Input, outputs []Output) (Tx, error) {
	normalized := make([]Output, len(outputs))
	for i, out := range outputs {
		sender, err := ToAccountID(string(out.Sender))
		if err != nil {
			return Tx{}, fmt.Errorf("sender: %w", err)
		}
		receiver, err := ToAccountID(string(out.Receiver))
		if err != nil {
			return Tx{}, fmt.Errorf("receiver: %w", err)
		}
		normalized[i] = Output{Sender: sender, Receiver: receiver, Amount: out.Amount}
	}

	tx := Tx{
		Inputs:  inputs,
		Outputs: normalized,
	}

	return tx, nil
}

// ID returns the hash of the canonical encoding of the transaction. Nil
// and empty lists encode the same way.
func (tx Tx) ID() signature.Digest {
	canonical := Tx{
		Inputs:  tx.Inputs,
		Outputs: tx.Outputs,
	}
	if canonical.Inputs == nil {
		canonical.Inputs = []Input{}
	}
	if canonical.Outputs == nil {
		canonical.Outputs = []Output{}
	}

	return signature.Hash(canonical)
}

// Hash implements the merkle Hashable interface for providing a hash
// of a transaction.
func (tx Tx) Hash() ([]byte, error) {
	id := tx.ID()
	return id[:], nil
}

// Equals implements the merkle Hashable interface for providing an equality
// check between two transactions.
func (tx Tx) Equals(otherTx Tx) bool {
	return tx.ID() == otherTx.ID()
}

// OutputTotal returns the sum of the output amounts and false if the
// sum overflows.
func (tx Tx) OutputTotal() (uint64, bool) {
	var total uint64
	for _, out := range tx.Outputs {
		next := total + out.Amount
		if next < total {
			return 0, false
		}
		total = next
	}

	return total, true
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:in[%d]:out[%d]", tx.ID(), len(tx.Inputs), len(tx.Outputs))
}
