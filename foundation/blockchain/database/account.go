package database

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// AccountID identifies the owner of an output. It is the checksummed hex
// form of an Ethereum address, so two ids naming the same address compare
// equal.
type AccountID string

// ToAccountID validates a hex address and returns it in checksummed form.
// Lower and upper case spellings of one address produce the same id.
func ToAccountID(hex string) (AccountID, error) {
	if !common.IsHexAddress(hex) {
		return "", fmt.Errorf("invalid account format %q", hex)
	}

	return AccountID(common.HexToAddress(hex).Hex()), nil
}

// PublicKeyToAccountID derives the account controlled by the public key.
func PublicKeyToAccountID(pk ecdsa.PublicKey) AccountID {
	return AccountID(crypto.PubkeyToAddress(pk).Hex())
}

// IsAccountID reports whether the id is a hex address in checksummed form.
func (a AccountID) IsAccountID() bool {
	if !common.IsHexAddress(string(a)) {
		return false
	}

	return common.HexToAddress(string(a)).Hex() == string(a)
}
