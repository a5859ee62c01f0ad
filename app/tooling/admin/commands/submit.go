package commands

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var (
	from   string
	to     string
	amount uint64
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a transaction paying an account from the unspent outputs of another",
	RunE:  submitRun,
}

var balanceCmd = &cobra.Command{
	Use:   "balance <name|account>",
	Short: "Print the balance and unspent outputs of an account",
	Args:  cobra.ExactArgs(1),
	RunE:  balanceRun,
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().StringVarP(&from, "from", "f", "", "Name or account paying the value.")
	submitCmd.Flags().StringVarP(&to, "to", "t", "", "Name or account receiving the value.")
	submitCmd.Flags().Uint64VarP(&amount, "amount", "v", 0, "Value to send.")
	submitCmd.MarkFlagRequired("from")
	submitCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(balanceCmd)
}

type unspent struct {
	TxID   string `json:"tx_id"`
	Index  uint32 `json:"index"`
	Amount uint64 `json:"amount"`
}

func submitRun(cmd *cobra.Command, args []string) error {
	sender, err := resolveAccount(from)
	if err != nil {
		return err
	}

	receiver, err := resolveAccount(to)
	if err != nil {
		return err
	}

	c := newClient(publicURL)

	var utxos []unspent
	if err := c.get("/v1/utxo/"+string(sender), &utxos); err != nil {
		return err
	}

	// A transaction pays a single receiver, so any value the chosen inputs
	// hold above the amount is not returned to the sender.
	type input struct {
		TxID  string `json:"tx_id"`
		Index uint32 `json:"index"`
	}
	var inputs []input
	var total uint64
	for _, u := range utxos {
		if total >= amount && len(inputs) > 0 {
			break
		}
		inputs = append(inputs, input{TxID: u.TxID, Index: u.Index})
		total += u.Amount
	}

	if total < amount {
		return fmt.Errorf("account %s holds %d, need %d", sender, total, amount)
	}

	if total > amount {
		fmt.Printf("warning: inputs hold %d, %d is not paid to anyone\n", total, total-amount)
	}

	tx := struct {
		Inputs  []input           `json:"inputs"`
		Outputs []database.Output `json:"outputs"`
	}{
		Inputs:  inputs,
		Outputs: []database.Output{{Sender: sender, Receiver: receiver, Amount: amount}},
	}

	var resp struct {
		Status string `json:"status"`
		ID     string `json:"id"`
	}
	if err := c.post("/v1/tx/submit", tx, &resp); err != nil {
		return err
	}

	fmt.Println(resp.Status+":", resp.ID)

	return nil
}

func balanceRun(cmd *cobra.Command, args []string) error {
	accountID, err := resolveAccount(args[0])
	if err != nil {
		return err
	}

	c := newClient(publicURL)

	var balance struct {
		Name     string `json:"name"`
		Balance  uint64 `json:"balance"`
		HeadHash string `json:"head_hash"`
	}
	if err := c.get("/v1/balance/"+string(accountID), &balance); err != nil {
		return err
	}

	fmt.Printf("%s %s: %d at %s\n", accountID, balance.Name, balance.Balance, balance.HeadHash)

	var utxos []unspent
	if err := c.get("/v1/utxo/"+string(accountID), &utxos); err != nil {
		return err
	}

	for _, u := range utxos {
		fmt.Printf("  %s:%d %d\n", u.TxID, u.Index, u.Amount)
	}

	return nil
}
