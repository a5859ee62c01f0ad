package private

import "github.com/ardanlabs/ledger/foundation/blockchain/signature"

type status struct {
	Consensus  string           `json:"consensus"`
	HeadHash   signature.Digest `json:"head_hash"`
	HeadNumber uint64           `json:"head_number"`
	Mempool    int              `json:"mempool"`
	Branches   int              `json:"branches"`
	Authority  string           `json:"authority,omitempty"`
}

type tip struct {
	Hash   signature.Digest `json:"hash"`
	Number uint64           `json:"number"`
	Parent signature.Digest `json:"parent"`
}
