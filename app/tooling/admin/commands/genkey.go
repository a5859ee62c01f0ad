package commands

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var genkeyCmd = &cobra.Command{
	Use:   "genkey <name>",
	Short: "Generate a new key pair in the account path",
	Args:  cobra.ExactArgs(1),
	RunE:  genkeyRun,
}

func init() {
	rootCmd.AddCommand(genkeyCmd)
}

func genkeyRun(cmd *cobra.Command, args []string) error {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return err
	}

	path := keyPath(args[0])
	if err := crypto.SaveECDSA(path, privateKey); err != nil {
		return err
	}

	log.Infow("genkey", "path", path)

	fmt.Println("account:  ", database.PublicKeyToAccountID(privateKey.PublicKey))
	fmt.Println("authority:", genesis.AuthorityHex(privateKey.PublicKey))

	return nil
}
