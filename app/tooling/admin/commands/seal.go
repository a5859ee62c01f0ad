package commands

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var blockFile string

var sealCmd = &cobra.Command{
	Use:     "seal",
	Aliases: []string{"mine", "sign"},
	Short:   "Ask the node to seal a block from its mempool",
	RunE:    sealRun,
}

var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Send a sealed block file to the node",
	RunE:  proposeRun,
}

func init() {
	rootCmd.AddCommand(sealCmd)
	sealCmd.Flags().StringVarP(&blockFile, "out", "o", "", "Write the sealed block to this file.")

	rootCmd.AddCommand(proposeCmd)
	proposeCmd.Flags().StringVarP(&blockFile, "file", "f", "", "Path to the block file.")
	proposeCmd.MarkFlagRequired("file")
}

func sealRun(cmd *cobra.Command, args []string) error {
	var blockData database.BlockData
	if err := newClient(privateURL).post("/v1/node/block/seal", nil, &blockData); err != nil {
		return err
	}

	fmt.Printf("sealed block %d: %s trans[%d]\n", blockData.Header.Number, blockData.Hash, len(blockData.Trans))

	if blockFile == "" {
		return nil
	}

	block, err := database.ToBlock(blockData)
	if err != nil {
		return err
	}

	return database.SaveBlockFile(blockFile, block)
}

func proposeRun(cmd *cobra.Command, args []string) error {
	block, err := database.LoadBlockFile(blockFile)
	if err != nil {
		return err
	}

	var resp struct {
		Status string `json:"status"`
		Hash   string `json:"hash"`
	}
	if err := newClient(privateURL).post("/v1/node/block/propose", database.NewBlockData(block), &resp); err != nil {
		return err
	}

	fmt.Println(resp.Status+":", resp.Hash)

	return nil
}
