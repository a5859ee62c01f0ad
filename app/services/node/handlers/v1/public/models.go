package public

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

type input struct {
	TxID  string `json:"tx_id" validate:"required"`
	Index uint32 `json:"index"`
}

type output struct {
	Sender   string `json:"sender" validate:"required"`
	Receiver string `json:"receiver" validate:"required"`
	Amount   uint64 `json:"amount"`
}

// newTx is what a client submits to the mempool.
type newTx struct {
	Inputs  []input  `json:"inputs" validate:"dive"`
	Outputs []output `json:"outputs" validate:"required,min=1,dive"`
}

func toDBTx(ntx newTx) (database.Tx, error) {
	inputs := make([]database.Input, len(ntx.Inputs))
	for i, in := range ntx.Inputs {
		txID, err := signature.ToDigest(in.TxID)
		if err != nil {
			return database.Tx{}, err
		}
		inputs[i] = database.Input{TxID: txID, Index: in.Index}
	}

	outputs := make([]database.Output, len(ntx.Outputs))
	for i, out := range ntx.Outputs {
		outputs[i] = database.Output{
			Sender:   database.AccountID(out.Sender),
			Receiver: database.AccountID(out.Receiver),
			Amount:   out.Amount,
		}
	}

	return database.NewTx(inputs, outputs)
}

type txInfo struct {
	ID      signature.Digest  `json:"id"`
	Inputs  []database.Input  `json:"inputs"`
	Outputs []database.Output `json:"outputs"`
}

func toTxInfo(tx database.Tx) txInfo {
	return txInfo{
		ID:      tx.ID(),
		Inputs:  tx.Inputs,
		Outputs: tx.Outputs,
	}
}

type balance struct {
	Account  database.AccountID `json:"account"`
	Name     string             `json:"name"`
	Balance  uint64             `json:"balance"`
	HeadHash signature.Digest   `json:"head_hash"`
}

type utxo struct {
	TxID     signature.Digest   `json:"tx_id"`
	Index    uint32             `json:"index"`
	Sender   database.AccountID `json:"sender"`
	Receiver database.AccountID `json:"receiver"`
	Amount   uint64             `json:"amount"`
}

type proof struct {
	Block signature.Digest `json:"block"`
	TxID  signature.Digest `json:"tx_id"`
	Root  signature.Digest `json:"root"`
	Proof []string         `json:"proof"`
	Order []int64          `json:"order"`
}
