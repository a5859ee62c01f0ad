package database

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"

	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"golang.org/x/sync/errgroup"
)

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	PrevBlock         *Block // Nil mines a genesis block.
	Target            *big.Int
	TimeStamp         uint64
	IncludeMerkleRoot bool
	Trans             []Tx
	Workers           int    // Number of goroutines searching disjoint nonce ranges.
	MaxAttempts       uint64 // Zero searches until the context is cancelled.
	EvHandler         func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	nb := NewBlock(BlockArgs{
		Consensus:         genesis.ConsensusPOW,
		PrevBlock:         args.PrevBlock,
		Target:            args.Target,
		TimeStamp:         args.TimeStamp,
		IncludeMerkleRoot: args.IncludeMerkleRoot,
		Trans:             args.Trans,
	})

	if err := nb.Mine(ctx, args.Workers, args.MaxAttempts, args.EvHandler); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// errSolved is returned by the worker that finds a solution so the other
// workers are cancelled.
var errSolved = errors.New("solved")

// Mine does the work of finding a nonce whose block hash is at or below the
// header target. Workers search interleaved nonce sequences from a random
// starting point and the first solution cancels the rest. Pointer semantics
// are being used since a nonce is being discovered.
func (b *Block) Mine(ctx context.Context, workers int, maxAttempts uint64, evHandler func(v string, args ...any)) error {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	ev("database: Mine: MINING: started: blk[%d]", b.Header.Number)
	defer ev("database: Mine: MINING: completed: blk[%d]", b.Header.Number)

	if workers <= 0 {
		workers = 1
	}

	target := b.target()
	if target.Sign() <= 0 {
		return ErrInvalidSeal
	}

	// Choose a random starting point for the nonce. After this, each worker
	// steps through its own sequence until a solution is found.
	nBig, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return err
	}
	start := nBig.Uint64()

	solved := make(chan uint64, 1)
	g, gctx := errgroup.WithContext(ctx)

	for w := range workers {

		// Split the attempt bound across the workers.
		limit := maxAttempts / uint64(workers)
		if uint64(w) < maxAttempts%uint64(workers) {
			limit++
		}

		// The header is copied so each worker owns its nonce.
		header := b.Header
		nonce := start + uint64(w)

		g.Go(func() error {
			for attempts := uint64(0); maxAttempts == 0 || attempts < limit; attempts++ {
				if attempts%1_000_000 == 0 && attempts > 0 {
					ev("database: Mine: MINING: worker[%d]: attempts[%d]", w, attempts)
				}

				// Did another worker solve it or did we get cancelled.
				if gctx.Err() != nil {
					return nil
				}

				header.Nonce = nonce
				if isHashSolved(target, signature.Hash(header)) {
					select {
					case solved <- nonce:
					default:
					}
					return errSolved
				}

				nonce += uint64(workers)
			}

			return nil
		})
	}

	// Workers only fail with errSolved, which cancels the others.
	if err := g.Wait(); err != nil && !errors.Is(err, errSolved) {
		return err
	}

	select {
	case nonce := <-solved:
		b.Header.Nonce = nonce
		ev("database: Mine: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.Header.PrevBlockHash, b.Hash())
		return nil
	default:
	}

	if ctx.Err() != nil {
		ev("database: Mine: MINING: CANCELLED")
		return ctx.Err()
	}

	return ErrMiningExhausted
}

// isHashSolved checks the hash to make sure it complies with the POW rules.
// The hash read as a big endian integer must not exceed the target.
func isHashSolved(target *big.Int, hash signature.Digest) bool {
	return hash.Big().Cmp(target) <= 0
}
