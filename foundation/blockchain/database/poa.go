package database

import (
	"crypto/ecdsa"

	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// POAArgs represents the set of arguments required to run POA.
type POAArgs struct {
	PrevBlock         *Block // Nil signs a genesis block.
	TimeStamp         uint64
	IncludeMerkleRoot bool
	Trans             []Tx
	PrivateKey        *ecdsa.PrivateKey
}

// POA constructs a new Block and seals it with the authority's signature.
// No numeric search takes place.
func POA(args POAArgs) (Block, error) {
	nb := NewBlock(BlockArgs{
		Consensus:         genesis.ConsensusPOA,
		PrevBlock:         args.PrevBlock,
		TimeStamp:         args.TimeStamp,
		IncludeMerkleRoot: args.IncludeMerkleRoot,
		Trans:             args.Trans,
	})

	if err := nb.Sign(args.PrivateKey); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// Sign seals the block with a signature over the signing hash. Pointer
// semantics are being used since the signature is added to the header.
func (b *Block) Sign(privateKey *ecdsa.PrivateKey) error {
	sig, err := signature.Sign(b.SigningHash(), privateKey)
	if err != nil {
		return err
	}

	b.Header.Signature = sig

	return nil
}

// Signer returns the public key of the account that sealed the block.
func (b Block) Signer() (*ecdsa.PublicKey, error) {
	return signature.FromPublicKey(b.SigningHash(), b.Header.Signature)
}
