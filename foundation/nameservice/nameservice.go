// Package nameservice maps account ids to the names of the key files in a
// folder, and back.
package nameservice

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeyExtension is the file extension of a private key file.
const KeyExtension = ".ecdsa"

// NameService maintains the names of the accounts whose keys are held in
// a folder.
type NameService struct {
	accounts map[database.AccountID]string
	names    map[string]database.AccountID
}

// New reads every key file directly inside root. A folder that does not
// exist produces an empty name service.
func New(root string) (*NameService, error) {
	ns := NameService{
		accounts: make(map[database.AccountID]string),
		names:    make(map[string]database.AccountID),
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ns, nil
		}
		return nil, fmt.Errorf("reading key folder: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != KeyExtension {
			continue
		}

		privateKey, err := crypto.LoadECDSA(filepath.Join(root, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("loading key %s: %w", entry.Name(), err)
		}

		name := strings.TrimSuffix(entry.Name(), KeyExtension)
		accountID := database.PublicKeyToAccountID(privateKey.PublicKey)

		ns.accounts[accountID] = name
		ns.names[name] = accountID
	}

	return &ns, nil
}

// Lookup returns the name for the specified account, or the account itself
// when no key file is known for it.
func (ns *NameService) Lookup(accountID database.AccountID) string {
	name, exists := ns.accounts[accountID]
	if !exists {
		return string(accountID)
	}
	return name
}

// Account returns the account controlled by the named key file.
func (ns *NameService) Account(name string) (database.AccountID, bool) {
	accountID, exists := ns.names[strings.TrimSuffix(name, KeyExtension)]
	return accountID, exists
}

// Names returns the known names in order.
func (ns *NameService) Names() []string {
	names := make([]string, 0, len(ns.names))
	for name := range ns.names {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Copy returns a copy of the map of names and accounts.
func (ns *NameService) Copy() map[database.AccountID]string {
	cpy := make(map[database.AccountID]string, len(ns.accounts))
	for accountID, name := range ns.accounts {
		cpy[accountID] = name
	}
	return cpy
}
