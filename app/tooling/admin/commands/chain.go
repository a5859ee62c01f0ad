package commands

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var chainCmd = &cobra.Command{
	Use:   "chain [hash]",
	Short: "Print the chain from a block back to genesis, the head by default",
	Args:  cobra.MaximumNArgs(1),
	RunE:  chainRun,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the node status and its branch tips",
	RunE:  statusRun,
}

func init() {
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(statusCmd)
}

func chainRun(cmd *cobra.Command, args []string) error {
	c := newClient(publicURL)

	var hash string
	switch len(args) {
	case 1:
		hash = args[0]
	default:
		var head database.BlockData
		if err := c.get("/v1/head", &head); err != nil {
			return err
		}
		hash = head.Hash.String()
	}

	var blocks []database.BlockData
	if err := c.get("/v1/chain/"+hash, &blocks); err != nil {
		return err
	}

	for _, blockData := range blocks {
		fmt.Printf("%6d %s %s trans[%d]\n", blockData.Header.Number, blockData.Hash, blockData.Header.Consensus, len(blockData.Trans))
	}

	return nil
}

func statusRun(cmd *cobra.Command, args []string) error {
	c := newClient(privateURL)

	var status map[string]any
	if err := c.get("/v1/node/status", &status); err != nil {
		return err
	}

	for _, key := range []string{"consensus", "head_number", "head_hash", "mempool", "branches", "authority"} {
		if v, ok := status[key]; ok {
			fmt.Printf("%-12s %v\n", key+":", v)
		}
	}

	var tips []struct {
		Hash   string `json:"hash"`
		Number uint64 `json:"number"`
	}
	if err := c.get("/v1/node/branches", &tips); err != nil {
		return err
	}

	for _, tip := range tips {
		fmt.Printf("tip %6d %s\n", tip.Number, tip.Hash)
	}

	return nil
}
