package database

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/pkg/errors"
)

// OutPoint identifies a single transaction output.
type OutPoint struct {
	TxID  signature.Digest `json:"tx_id"`
	Index uint32           `json:"index"`
}

// String implements the fmt.Stringer interface for logging.
func (op OutPoint) String() string {
	return fmt.Sprintf("%s:%d", op.TxID, op.Index)
}

// UTXO is an unspent output along with its location.
type UTXO struct {
	OutPoint
	Output
}

// SpentSet collects the outputs consumed by the transactions of a block
// that is being validated.
type SpentSet map[OutPoint]struct{}

// =============================================================================

// maxLedgerDepth bounds how many snapshots may be stacked on top of each
// other before they are folded into one.
const maxLedgerDepth = 16

// Ledger is a snapshot of the unspent outputs of a chain along with the
// outputs already spent. A Ledger is never changed once constructed:
// applying transactions produces a new snapshot that records only what the
// transactions changed and refers back to the snapshot it was built on.
type Ledger struct {
	parent  *Ledger
	depth   int
	unspent int
	outputs map[OutPoint]Output
	spent   map[OutPoint]Output
}

// NewLedger constructs an empty ledger.
func NewLedger() Ledger {
	return Ledger{
		outputs: make(map[OutPoint]Output),
		spent:   make(map[OutPoint]Output),
	}
}

// Lookup returns the output at the specified location and whether it has
// been spent. The final return is false when the output does not exist.
func (l Ledger) Lookup(op OutPoint) (Output, bool, bool) {
	for cur := &l; cur != nil; cur = cur.parent {
		if out, spent := cur.spent[op]; spent {
			return out, true, true
		}
		if out, exists := cur.outputs[op]; exists {
			return out, false, true
		}
	}

	return Output{}, false, false
}

// Len returns the number of unspent outputs.
func (l Ledger) Len() int {
	return l.unspent
}

// Balance returns the sum of the unspent outputs owned by the account.
func (l Ledger) Balance(account AccountID) uint64 {
	var total uint64
	for _, utxo := range l.UnspentFor(account) {
		total += utxo.Amount
	}
	return total
}

// UnspentFor returns the unspent outputs owned by the account ordered by
// location.
func (l Ledger) UnspentFor(account AccountID) []UTXO {
	var utxos []UTXO
	for op, out := range l.fold().outputs {
		if out.Receiver != account {
			continue
		}
		utxos = append(utxos, UTXO{OutPoint: op, Output: out})
	}

	sort.Slice(utxos, func(i, j int) bool {
		if c := bytes.Compare(utxos[i].TxID[:], utxos[j].TxID[:]); c != 0 {
			return c < 0
		}
		return utxos[i].Index < utxos[j].Index
	})

	return utxos
}

// ValidateTx checks the transaction against the ledger and the outputs
// already consumed by earlier transactions of the same block. On success the
// consumed outputs are registered in the spent set. The ledger itself is
// not changed.
func (l Ledger) ValidateTx(tx Tx, inBlock SpentSet) error {
	consumed := make(map[OutPoint]struct{}, len(tx.Inputs))
	resolved := make([]Output, 0, len(tx.Inputs))

	for i, in := range tx.Inputs {
		op := in.OutPoint()

		out, spent, exists := l.Lookup(op)
		if !exists {
			return errors.Wrapf(ErrUnresolvedInput, "input[%d] %s", i, op)
		}

		_, inBlockSpent := inBlock[op]
		_, inTxSpent := consumed[op]
		if spent || inBlockSpent || inTxSpent {
			return errors.Wrapf(ErrDoubleSpend, "input[%d] %s", i, op)
		}

		consumed[op] = struct{}{}
		resolved = append(resolved, out)
	}

	if err := checkUsers(resolved, tx.Outputs); err != nil {
		return err
	}

	var inTotal uint64
	for _, out := range resolved {
		next := inTotal + out.Amount
		if next < inTotal {
			return errors.Wrap(ErrMoneyCreation, "input total overflows")
		}
		inTotal = next
	}

	outTotal, ok := tx.OutputTotal()
	if !ok {
		return errors.Wrap(ErrMoneyCreation, "output total overflows")
	}

	if outTotal > inTotal {
		return errors.Wrapf(ErrMoneyCreation, "outputs %d, inputs %d", outTotal, inTotal)
	}

	for op := range consumed {
		inBlock[op] = struct{}{}
	}

	return nil
}

// ValidateAllocation checks a transaction recorded by the genesis block.
// Allocations create value so they can't reference any outputs.
func (l Ledger) ValidateAllocation(tx Tx) error {
	if len(tx.Inputs) > 0 {
		op := tx.Inputs[0].OutPoint()
		return errors.Wrapf(ErrUnresolvedInput, "allocation input %s", op)
	}

	if err := checkUsers(nil, tx.Outputs); err != nil {
		return err
	}

	if _, ok := tx.OutputTotal(); !ok {
		return errors.Wrap(ErrMoneyCreation, "allocation total overflows")
	}

	return nil
}

// Apply constructs a new ledger with the inputs of the transactions marked
// as spent and their outputs added as unspent. The transactions must have
// been validated against this ledger.
func (l Ledger) Apply(trans []Tx) Ledger {
	base := l
	nl := Ledger{
		parent:  &base,
		depth:   l.depth + 1,
		unspent: l.unspent,
		outputs: make(map[OutPoint]Output),
		spent:   make(map[OutPoint]Output),
	}

	for _, tx := range trans {
		for _, in := range tx.Inputs {
			op := in.OutPoint()

			out, spent, exists := nl.Lookup(op)
			if !exists || spent {
				continue
			}

			delete(nl.outputs, op)
			nl.spent[op] = out
			nl.unspent--
		}

		id := tx.ID()
		for i, out := range tx.Outputs {
			op := OutPoint{TxID: id, Index: uint32(i)}
			if _, _, exists := nl.Lookup(op); exists {
				continue
			}

			nl.outputs[op] = out
			nl.unspent++
		}
	}

	if nl.depth >= maxLedgerDepth {
		return nl.fold()
	}

	return nl
}

// fold collapses the stack of snapshots into a single one holding every
// unspent output and every spent output.
func (l Ledger) fold() Ledger {
	if l.parent == nil {
		return l
	}

	fl := Ledger{
		unspent: l.unspent,
		outputs: make(map[OutPoint]Output, l.unspent),
		spent:   make(map[OutPoint]Output),
	}

	for cur := &l; cur != nil; cur = cur.parent {
		for op, out := range cur.spent {
			if _, exists := fl.outputs[op]; !exists {
				fl.spent[op] = out
			}
		}
		for op, out := range cur.outputs {
			if _, spent := fl.spent[op]; spent {
				continue
			}
			if _, exists := fl.outputs[op]; !exists {
				fl.outputs[op] = out
			}
		}
	}

	return fl
}

// =============================================================================

// checkUsers makes sure every resolved input is owned by one spender, every
// output is paid by that spender, and every output pays one receiver.
func checkUsers(resolved []Output, outputs []Output) error {
	if len(resolved) > 0 {
		spender := resolved[0].Receiver
		for i, out := range resolved {
			if out.Receiver != spender {
				return errors.Wrapf(ErrInconsistentUsers, "input[%d] owned by %s, spender %s", i, out.Receiver, spender)
			}
		}

		for i, out := range outputs {
			if out.Sender != spender {
				return errors.Wrapf(ErrInconsistentUsers, "output[%d] sent by %s, spender %s", i, out.Sender, spender)
			}
		}
	}

	if len(outputs) > 0 {
		receiver := outputs[0].Receiver
		for i, out := range outputs {
			if out.Receiver != receiver {
				return errors.Wrapf(ErrInconsistentUsers, "output[%d] pays %s, receiver %s", i, out.Receiver, receiver)
			}
		}
	}

	return nil
}
