package database

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"os"

	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
)

// GenesisArgs represents the set of arguments required to seal the genesis
// block of a chain.
type GenesisArgs struct {
	Genesis           genesis.Genesis
	IncludeMerkleRoot bool
	PrivateKey        *ecdsa.PrivateKey // Required for a poa chain.
	Workers           int
	EvHandler         func(v string, args ...any)
}

// SealGenesis builds the genesis block from the genesis allocations and seals
// it with the consensus the genesis file names.
func SealGenesis(ctx context.Context, args GenesisArgs) (Block, error) {
	trans, err := AllocationTrans(args.Genesis)
	if err != nil {
		return Block{}, err
	}

	timeStamp := uint64(args.Genesis.Date.UTC().Unix())

	switch args.Genesis.Consensus {
	case genesis.ConsensusPOW:
		return POW(ctx, POWArgs{
			Target:            args.Genesis.MaxTarget(),
			TimeStamp:         timeStamp,
			IncludeMerkleRoot: args.IncludeMerkleRoot,
			Trans:             trans,
			Workers:           args.Workers,
			EvHandler:         args.EvHandler,
		})

	case genesis.ConsensusPOA:
		if args.PrivateKey == nil {
			return Block{}, errors.New("poa genesis requires an authority key")
		}
		return POA(POAArgs{
			TimeStamp:         timeStamp,
			IncludeMerkleRoot: args.IncludeMerkleRoot,
			Trans:             trans,
			PrivateKey:        args.PrivateKey,
		})
	}

	return Block{}, ErrInvalidSeal
}

// LoadBlockFile reads a block written by SaveBlockFile.
func LoadBlockFile(path string) (Block, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Block{}, err
	}

	var blockData BlockData
	if err := json.Unmarshal(content, &blockData); err != nil {
		return Block{}, err
	}

	return ToBlock(blockData)
}

// SaveBlockFile writes the block to the specified path.
func SaveBlockFile(path string, block Block) error {
	data, err := json.MarshalIndent(NewBlockData(block), "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
