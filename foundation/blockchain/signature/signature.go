// Package signature provides helper functions for handling the blockchain
// hashing and signature needs.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// DigestLength is the number of bytes in a digest.
const DigestLength = 32

// SignatureLength is the number of bytes in a seal signature in the
// [R|S|V] format.
const SignatureLength = crypto.SignatureLength

// ledgerID is an arbitrary number added to the recovery id of every
// signature. It makes it clear the signature was produced for this ledger.
// Ethereum and Bitcoin do this as well, but they use the value of 27.
const ledgerID = 29

// =============================================================================

// Digest represents the fixed width output of the hash primitive.
type Digest [DigestLength]byte

// ZeroHash represents a digest of all zeros. It is the parent hash of the
// genesis block and the transaction root of a block that omits it.
var ZeroHash Digest

// EmptyHash is the digest of the empty byte string.
var EmptyHash = HashBytes(nil)

// HashBytes applies sha256 twice to the specified data.
func HashBytes(data []byte) Digest {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}

// Hash returns the digest of the canonical JSON encoding of the value. The
// encoding is deterministic since struct fields are emitted in declaration
// order.
func Hash(value any) Digest {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	return HashBytes(data)
}

// ToDigest converts a hex-encoded string into a digest.
func ToDigest(hex string) (Digest, error) {
	var d Digest
	if err := d.UnmarshalText([]byte(hex)); err != nil {
		return Digest{}, err
	}

	return d, nil
}

// Bytes returns a copy of the digest as a slice.
func (d Digest) Bytes() []byte {
	b := make([]byte, DigestLength)
	copy(b, d[:])
	return b
}

// Big interprets the digest as a big endian unsigned integer.
func (d Digest) Big() *big.Int {
	return new(big.Int).SetBytes(d[:])
}

// IsZero reports whether the digest is the ZeroHash.
func (d Digest) IsZero() bool {
	return d == ZeroHash
}

// String implements the fmt.Stringer interface.
func (d Digest) String() string {
	return hexutil.Encode(d[:])
}

// MarshalText implements the encoding.TextMarshaler interface.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (d *Digest) UnmarshalText(text []byte) error {
	b, err := hexutil.Decode(string(text))
	if err != nil {
		return fmt.Errorf("decoding digest: %w", err)
	}

	if len(b) != DigestLength {
		return fmt.Errorf("invalid digest length, got %d, exp %d", len(b), DigestLength)
	}

	copy(d[:], b)
	return nil
}

// =============================================================================

// Sign uses the specified private key to sign the digest. The signature is
// returned in the [R|S|V] format with the ledger id added to V.
func Sign(digest Digest, privateKey *ecdsa.PrivateKey) ([]byte, error) {

	// Prepare the data for signing.
	data := stamp(digest)

	// Sign the hash with the private key to produce a signature.
	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return nil, err
	}

	// Extract the public key from the data and the signature.
	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return nil, err
	}

	// Check the public key extracted from the data and signature.
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), data, sig[:crypto.RecoveryIDOffset]) {
		return nil, errors.New("invalid signature")
	}

	sig[crypto.RecoveryIDOffset] += ledgerID

	return sig, nil
}

// VerifySignature verifies the signature conforms to our standards.
func VerifySignature(sig []byte) error {
	if len(sig) != SignatureLength {
		return fmt.Errorf("invalid signature length, got %d, exp %d", len(sig), SignatureLength)
	}

	// Check the recovery id is either 0 or 1.
	v := sig[crypto.RecoveryIDOffset] - ledgerID
	if v != 0 && v != 1 {
		return errors.New("invalid recovery id")
	}

	// Check the signature values are valid.
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(v, r, s, false) {
		return errors.New("invalid signature values")
	}

	return nil
}

// FromPublicKey extracts the public key for the account that signed the
// digest and verifies the signature against it.
func FromPublicKey(digest Digest, sig []byte) (*ecdsa.PublicKey, error) {
	if err := VerifySignature(sig); err != nil {
		return nil, err
	}

	// NOTE: If the same exact digest for the given signature is not provided
	// we will get the wrong public key. The public key is being extracted
	// from the data and signature.

	data := stamp(digest)

	raw := make([]byte, SignatureLength)
	copy(raw, sig)
	raw[crypto.RecoveryIDOffset] -= ledgerID

	// Capture the public key associated with this data and signature.
	publicKey, err := crypto.SigToPub(data, raw)
	if err != nil {
		return nil, err
	}

	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), data, raw[:crypto.RecoveryIDOffset]) {
		return nil, errors.New("signature does not verify")
	}

	return publicKey, nil
}

// FromAddress extracts the address for the account that signed the digest.
func FromAddress(digest Digest, sig []byte) (string, error) {
	publicKey, err := FromPublicKey(digest, sig)
	if err != nil {
		return "", err
	}

	return crypto.PubkeyToAddress(*publicKey).String(), nil
}

// SignatureString returns the signature as a string.
func SignatureString(sig []byte) string {
	return hexutil.Encode(sig)
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents the digest with the
// ledger stamp embedded into the final hash.
func stamp(digest Digest) []byte {

	// This stamp is used so signatures we produce when signing data
	// are always unique to this ledger.
	stamp := []byte("\x19Ledger Signed Message:\n32")

	return crypto.Keccak256(stamp, digest[:])
}
