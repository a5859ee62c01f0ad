package database_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
)

func mine(t *testing.T, prev *database.Block, target *big.Int, trans ...database.Tx) database.Block {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	block, err := database.POW(ctx, database.POWArgs{
		PrevBlock:         prev,
		Target:            target,
		TimeStamp:         genesisTime,
		IncludeMerkleRoot: true,
		Trans:             trans,
		Workers:           4,
	})
	if err != nil {
		t.Fatalf("Should be able to mine a block: %s", err)
	}
	return block
}

func Test_POW(t *testing.T) {
	rules := powRules()

	t.Log("Given the need to seal blocks with proof of work.")
	{
		t.Logf("\tTest 0:\tWhen mining a block against an easy target.")
		{
			block := mine(t, nil, easyTarget, allocation(alice, 1000))

			if block.Hash().Big().Cmp(easyTarget) > 0 {
				t.Fatalf("\t%s\tTest 0:\tShould find a hash at or below the target.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould find a hash at or below the target.", success)

			if _, err := block.ValidateBlock(newTestChain(), rules, nil); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to validate the block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to validate the block.", success)

			bad := block
			for bad.Hash().Big().Cmp(easyTarget) <= 0 {
				bad.Header.Nonce++
			}

			if _, err := bad.ValidateBlock(newTestChain(), rules, nil); !errors.Is(err, database.ErrInvalidSeal) {
				t.Fatalf("\t%s\tTest 0:\tShould fail with InvalidSeal for a hash above the target, got %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould fail with InvalidSeal for a hash above the target.", success)
		}

		t.Logf("\tTest 1:\tWhen mining a block against a target easier than the chain allows.")
		{
			tooEasy := new(big.Int).Add(rules.MaxTarget, big.NewInt(1))
			block := mine(t, nil, tooEasy)

			if _, err := block.ValidateBlock(newTestChain(), rules, nil); !errors.Is(err, database.ErrInvalidSeal) {
				t.Fatalf("\t%s\tTest 1:\tShould fail with InvalidSeal, got %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould fail with InvalidSeal.", success)
		}

		t.Logf("\tTest 2:\tWhen validating a proof of authority block on a proof of work chain.")
		{
			block := signedBlock(t, nil, genesisTime)

			if _, err := block.ValidateBlock(newTestChain(), rules, nil); !errors.Is(err, database.ErrInvalidSeal) {
				t.Fatalf("\t%s\tTest 2:\tShould fail with InvalidSeal, got %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould fail with InvalidSeal.", success)
		}
	}
}

func Test_MiningExhausted(t *testing.T) {
	_, err := database.POW(context.Background(), database.POWArgs{
		Target:      big.NewInt(1),
		TimeStamp:   genesisTime,
		Workers:     4,
		MaxAttempts: 1000,
	})

	if !errors.Is(err, database.ErrMiningExhausted) {
		t.Fatalf("Should fail with MiningExhausted, got %v", err)
	}
}

func Test_MiningCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := database.POW(ctx, database.POWArgs{
		Target:    big.NewInt(1),
		TimeStamp: genesisTime,
		Workers:   2,
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Should stop when the context is cancelled, got %v", err)
	}
}

func Test_Weight(t *testing.T) {
	target := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 252), big.NewInt(1))
	pow := database.NewBlock(database.BlockArgs{Consensus: genesis.ConsensusPOW, Target: target, TimeStamp: genesisTime})

	if got := pow.Weight(); got.Cmp(big.NewInt(16)) != 0 {
		t.Fatalf("Should weigh 2^256/(target+1), got %s", got)
	}

	poa := database.NewBlock(database.BlockArgs{Consensus: genesis.ConsensusPOA, Target: target, TimeStamp: genesisTime})

	if got := poa.Weight(); got.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("Should weigh one for an authority block, got %s", got)
	}

	if poa.Header.Target.ToInt().Sign() != 0 {
		t.Fatalf("Should not record a target for an authority block.")
	}
}

func Test_POA(t *testing.T) {
	rules := poaRules(t)

	t.Log("Given the need to seal blocks with an authority signature.")
	{
		t.Logf("\tTest 0:\tWhen signing with an authority key.")
		{
			block := signedBlock(t, nil, genesisTime, allocation(alice, 10))

			if _, err := block.ValidateBlock(newTestChain(), rules, nil); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to validate the block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to validate the block.", success)

			pk, err := block.Signer()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to recover the signer: %v", failed, err)
			}
			if database.PublicKeyToAccountID(*pk) != alice {
				t.Fatalf("\t%s\tTest 0:\tShould recover the authority, got %s", failed, database.PublicKeyToAccountID(*pk))
			}
			t.Logf("\t%s\tTest 0:\tShould recover the authority.", success)
		}

		t.Logf("\tTest 1:\tWhen signing with a key that is not an authority.")
		{
			block, err := database.POA(database.POAArgs{
				TimeStamp:         genesisTime,
				IncludeMerkleRoot: true,
				PrivateKey:        mustKey(t, outsiderHexKey),
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to sign the block: %v", failed, err)
			}

			if _, err := block.ValidateBlock(newTestChain(), rules, nil); !errors.Is(err, database.ErrInvalidSeal) {
				t.Fatalf("\t%s\tTest 1:\tShould fail with InvalidSeal, got %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould fail with InvalidSeal.", success)
		}

		t.Logf("\tTest 2:\tWhen the header changes after signing.")
		{
			block := signedBlock(t, nil, genesisTime)
			block.Header.TimeStamp++

			if _, err := block.ValidateBlock(newTestChain(), rules, nil); !errors.Is(err, database.ErrInvalidSeal) {
				t.Fatalf("\t%s\tTest 2:\tShould fail with InvalidSeal, got %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould fail with InvalidSeal.", success)
		}

		t.Logf("\tTest 3:\tWhen the signature is missing.")
		{
			block := signedBlock(t, nil, genesisTime)
			block.Header.Signature = nil

			if _, err := block.ValidateBlock(newTestChain(), rules, nil); !errors.Is(err, database.ErrInvalidSeal) {
				t.Fatalf("\t%s\tTest 3:\tShould fail with InvalidSeal, got %v", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould fail with InvalidSeal.", success)
		}
	}
}
