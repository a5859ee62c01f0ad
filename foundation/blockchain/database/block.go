package database

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/merkle"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// BlockHeader represents common information required for each block. The
// nonce seals a PoW block and the signature seals a PoA block.
type BlockHeader struct {
	Consensus         string           `json:"consensus"`           // Seal mechanism used by the block, pow or poa.
	Number            uint64           `json:"number"`              // Ethereum: Block number (height) in the chain.
	TimeStamp         uint64           `json:"timestamp"`           // Bitcoin: Time the block was sealed.
	Target            *hexutil.Big     `json:"target"`              // Bitcoin: Upper bound for the block hash, zero for PoA.
	PrevBlockHash     signature.Digest `json:"prev_block_hash"`     // Bitcoin: Hash of the previous block in the chain.
	Genesis           bool             `json:"genesis"`             // Marks the first block of the chain.
	IncludeMerkleRoot bool             `json:"include_merkle_root"` // When false the trans root is the zero hash.
	TransRoot         signature.Digest `json:"trans_root"`          // Bitcoin/Ethereum: Merkle root of the transactions in this block.
	Nonce             uint64           `json:"nonce"`               // Bitcoin: Value identified to solve the hash solution.
	Signature         hexutil.Bytes    `json:"signature,omitempty"` // Authority signature over the header without the signature.
}

// Block represents a group of transactions batched together.
type Block struct {
	Header BlockHeader
	Trans  []Tx
}

// BlockArgs represents the set of arguments required to construct an
// unsealed block.
type BlockArgs struct {
	Consensus         string
	PrevBlock         *Block // Nil constructs a genesis block.
	Target            *big.Int
	TimeStamp         uint64 // Zero uses the current time.
	IncludeMerkleRoot bool
	Trans             []Tx
}

// NewBlock constructs an unsealed block on top of the previous block. The
// transaction root is computed here when requested so the choice is part
// of the header before it is sealed.
func NewBlock(args BlockArgs) Block {
	timeStamp := args.TimeStamp
	if timeStamp == 0 {
		timeStamp = uint64(time.Now().UTC().Unix())
	}

	header := BlockHeader{
		Consensus:         args.Consensus,
		TimeStamp:         timeStamp,
		Target:            (*hexutil.Big)(new(big.Int)),
		PrevBlockHash:     signature.ZeroHash,
		Genesis:           args.PrevBlock == nil,
		IncludeMerkleRoot: args.IncludeMerkleRoot,
		TransRoot:         signature.ZeroHash,
	}

	if args.Target != nil && args.Consensus == genesis.ConsensusPOW {
		header.Target = (*hexutil.Big)(new(big.Int).Set(args.Target))
	}

	if args.PrevBlock != nil {
		header.Number = args.PrevBlock.Header.Number + 1
		header.PrevBlockHash = args.PrevBlock.Hash()

		// A block can't be older than its parent.
		if header.TimeStamp < args.PrevBlock.Header.TimeStamp {
			header.TimeStamp = args.PrevBlock.Header.TimeStamp
		}
	}

	nb := Block{
		Header: header,
		Trans:  args.Trans,
	}

	if args.IncludeMerkleRoot {
		nb.Header.TransRoot = nb.CalcTransRoot()
	}

	return nb
}

// Hash returns the unique hash for the Block.
func (b Block) Hash() signature.Digest {

	// CORE NOTE: Hashing the block header and not the whole block so the blockchain
	// can be cryptographically checked by only needing block headers and not full
	// blocks with the transaction data. The header includes the seal, the merkle
	// root flag, and the merkle root (zero when the flag is off) so every one of
	// them changes the block's identity.

	return signature.Hash(b.Header)
}

// SigningHash returns the hash of the header with the signature removed.
// This is what an authority signs.
func (b Block) SigningHash() signature.Digest {
	h := b.Header
	h.Signature = nil

	return signature.Hash(h)
}

// CalcTransRoot computes the merkle root over the ids of the block's
// transactions in order.
func (b Block) CalcTransRoot() signature.Digest {
	ids := make([]signature.Digest, len(b.Trans))
	for i, tx := range b.Trans {
		ids[i] = tx.ID()
	}

	return merkle.Root(ids)
}

// TransProof returns a merkle proof that the transaction is part of
// the block.
func (b Block) TransProof(tx Tx) ([][]byte, []int64, error) {
	tree, err := merkle.NewTree(b.Trans)
	if err != nil {
		return nil, nil, err
	}

	return tree.Proof(tx)
}

// Weight returns the block's contribution to the weight of its chain. A PoW
// block weighs 2^256 / (target + 1) so harder blocks weigh more. A PoA
// block weighs one.
func (b Block) Weight() *big.Int {
	if b.Header.Consensus != genesis.ConsensusPOW {
		return big.NewInt(1)
	}

	target := b.target()
	if target.Sign() <= 0 {
		return new(big.Int)
	}

	denominator := new(big.Int).Add(target, big.NewInt(1))
	return new(big.Int).Div(maxWork, denominator)
}

// String implements the fmt.Stringer interface for logging.
func (b Block) String() string {
	return fmt.Sprintf("%s:%d:%s", b.Header.Consensus, b.Header.Number, b.Hash())
}

// target returns the header target as a big integer.
func (b Block) target() *big.Int {
	if b.Header.Target == nil {
		return new(big.Int)
	}
	return b.Header.Target.ToInt()
}

// maxWork represents 2^256.
var maxWork = new(big.Int).Lsh(big.NewInt(1), 256)

// =============================================================================

// BlockData represents what is written to storage.
type BlockData struct {
	Hash   signature.Digest `json:"hash"`
	Seq    uint64           `json:"seq,omitempty"`
	Header BlockHeader      `json:"block"`
	Trans  []Tx             `json:"trans"`
}

// NewBlockData constructs the value to serialize to storage. Seq is left
// for the caller to set when the acceptance order has to be preserved.
func NewBlockData(block Block) BlockData {
	blockData := BlockData{
		Hash:   block.Hash(),
		Header: block.Header,
		Trans:  block.Trans,
	}

	return blockData
}

// ToBlock converts a storage value into a Block and makes sure the stored
// hash matches the header.
func ToBlock(blockData BlockData) (Block, error) {
	block := Block{
		Header: blockData.Header,
		Trans:  blockData.Trans,
	}

	if hash := block.Hash(); hash != blockData.Hash {
		return Block{}, fmt.Errorf("stored block hash mismatch, got %s, exp %s", hash, blockData.Hash)
	}

	return block, nil
}
