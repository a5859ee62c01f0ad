package commands

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	consensus     string
	authorities   []string
	balances      []string
	target        string
	chainID       uint16
	transPerBlock uint16
	outDir        string
	signerName    string
	merkleRoot    bool
	workers       int
)

var genesisCmd = &cobra.Command{
	Use:   "genesis",
	Short: "Write a genesis file and the sealed genesis block",
	RunE:  genesisRun,
}

func init() {
	rootCmd.AddCommand(genesisCmd)
	genesisCmd.Flags().StringVarP(&consensus, "consensus", "c", genesis.ConsensusPOW, "Consensus of the chain, pow or poa.")
	genesisCmd.Flags().StringSliceVarP(&authorities, "authority", "a", nil, "Key names allowed to sign poa blocks.")
	genesisCmd.Flags().StringSliceVarP(&balances, "balance", "b", nil, "Allocations as name=amount.")
	genesisCmd.Flags().StringVarP(&target, "target", "t", "", "Easiest pow target as hex, defaults to 2^240.")
	genesisCmd.Flags().Uint16Var(&chainID, "chain-id", 1, "Unique id for the chain.")
	genesisCmd.Flags().Uint16Var(&transPerBlock, "trans-per-block", genesis.DefaultTransPerBlock, "Maximum transactions in a block.")
	genesisCmd.Flags().StringVarP(&outDir, "out", "o", "zblock", "Directory for genesis.json and genesis.block.")
	genesisCmd.Flags().StringVarP(&signerName, "key", "k", "", "Key name signing a poa genesis block, defaults to the first authority.")
	genesisCmd.Flags().BoolVar(&merkleRoot, "merkle", true, "Include the merkle root in the genesis header.")
	genesisCmd.Flags().IntVarP(&workers, "workers", "w", 4, "Goroutines mining a pow genesis block.")
}

func genesisRun(cmd *cobra.Command, args []string) error {
	gen := genesis.Genesis{
		Date:          time.Now().UTC().Truncate(time.Second),
		ChainID:       chainID,
		Consensus:     consensus,
		TransPerBlock: transPerBlock,
		Balances:      make(map[string]uint64),
	}

	if consensus == genesis.ConsensusPOW {
		t, err := powTarget(target)
		if err != nil {
			return err
		}
		gen.Target = t
	}

	for _, name := range authorities {
		privateKey, err := crypto.LoadECDSA(keyPath(name))
		if err != nil {
			return fmt.Errorf("loading authority %q: %w", name, err)
		}
		gen.Authorities = append(gen.Authorities, genesis.AuthorityHex(privateKey.PublicKey))
	}

	for _, balance := range balances {
		name, amount, found := strings.Cut(balance, "=")
		if !found {
			return fmt.Errorf("balance %q is not name=amount", balance)
		}

		value, err := strconv.ParseUint(amount, 10, 64)
		if err != nil {
			return fmt.Errorf("balance %q: %w", balance, err)
		}

		accountID, err := resolveAccount(name)
		if err != nil {
			return err
		}
		gen.Balances[string(accountID)] += value
	}

	if err := gen.Validate(); err != nil {
		return err
	}

	genArgs := database.GenesisArgs{
		Genesis:           gen,
		IncludeMerkleRoot: merkleRoot,
		Workers:           workers,
		EvHandler:         func(v string, args ...any) { log.Infof(v, args...) },
	}

	if consensus == genesis.ConsensusPOA {
		name := signerName
		if name == "" && len(authorities) > 0 {
			name = authorities[0]
		}

		privateKey, err := crypto.LoadECDSA(keyPath(name))
		if err != nil {
			return fmt.Errorf("loading signer %q: %w", name, err)
		}
		genArgs.PrivateKey = privateKey
	}

	block, err := database.SealGenesis(context.Background(), genArgs)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	if err := gen.Save(filepath.Join(outDir, "genesis.json")); err != nil {
		return err
	}

	if err := database.SaveBlockFile(filepath.Join(outDir, "genesis.block"), block); err != nil {
		return err
	}

	fmt.Println("genesis block:", block.Hash())

	return nil
}

func powTarget(hex string) (*hexutil.Big, error) {
	if hex == "" {
		return (*hexutil.Big)(new(big.Int).Lsh(big.NewInt(1), 240)), nil
	}

	t, err := hexutil.DecodeBig(hex)
	if err != nil {
		return nil, fmt.Errorf("target %q: %w", hex, err)
	}

	return (*hexutil.Big)(t), nil
}
