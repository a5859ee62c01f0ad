// Package commands contains the admin tooling commands.
package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/nameservice"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	publicURL   string
	privateURL  string
	accountPath string
)

var log *zap.SugaredLogger

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Administer a ledger node",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&publicURL, "url", "u", "http://localhost:8080", "Url of the node public api.")
	rootCmd.PersistentFlags().StringVar(&privateURL, "private-url", "http://localhost:9080", "Url of the node private api.")
	rootCmd.PersistentFlags().StringVarP(&accountPath, "account-path", "p", "zblock/accounts/", "Path to the directory with private keys.")
}

// Execute runs the command named on the command line.
func Execute(build string, logger *zap.SugaredLogger) error {
	log = logger
	rootCmd.Version = build
	return rootCmd.Execute()
}

// =============================================================================

func keyPath(name string) string {
	if !strings.HasSuffix(name, nameservice.KeyExtension) {
		name += nameservice.KeyExtension
	}

	return filepath.Join(accountPath, name)
}

// resolveAccount accepts an account id or the name of a key file in the
// account path.
func resolveAccount(nameOrID string) (database.AccountID, error) {
	if accountID, err := database.ToAccountID(nameOrID); err == nil {
		return accountID, nil
	}

	ns, err := nameservice.New(accountPath)
	if err != nil {
		return "", err
	}

	accountID, exists := ns.Account(nameOrID)
	if !exists {
		return "", fmt.Errorf("unknown account %q, known names %v", nameOrID, ns.Names())
	}

	return accountID, nil
}
