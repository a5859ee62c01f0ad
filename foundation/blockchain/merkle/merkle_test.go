package merkle_test

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/merkle"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// Data uses the hash primitive for the merkle tree.
type Data struct {
	x string
}

// Hash hashes the value using the double sha256 primitive.
func (d Data) Hash() ([]byte, error) {
	h := signature.HashBytes([]byte(d.x))
	return h[:], nil
}

// Equals tests for equality of two piece of data.
func (d Data) Equals(other Data) bool {
	return d.x == other.x
}

func makeData(n int) ([]Data, []signature.Digest) {
	data := make([]Data, n)
	digests := make([]signature.Digest, n)
	for i := range n {
		data[i] = Data{x: fmt.Sprintf("tx-%d", i)}
		digests[i] = signature.HashBytes([]byte(data[i].x))
	}
	return data, digests
}

func pair(l, r signature.Digest) signature.Digest {
	return signature.HashBytes(append(l.Bytes(), r[:]...))
}

// =============================================================================

func Test_Root(t *testing.T) {
	_, d := makeData(3)

	tt := []struct {
		name    string
		digests []signature.Digest
		exp     signature.Digest
	}{
		{name: "empty", digests: nil, exp: signature.EmptyHash},
		{name: "single", digests: d[:1], exp: d[0]},
		{name: "pair", digests: d[:2], exp: pair(d[0], d[1])},
		{name: "odd", digests: d[:3], exp: pair(pair(d[0], d[1]), pair(d[2], d[2]))},
	}

	t.Log("Given the need to compute merkle roots.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling %d digests.", testID, len(tst.digests))
				{
					got := merkle.Root(tst.digests)
					if got != tst.exp {
						t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, got)
						t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.exp)
						t.Fatalf("\t%s\tTest %d:\tShould get back the expected root.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get back the expected root.", success, testID)

					if again := merkle.Root(tst.digests); again != got {
						t.Fatalf("\t%s\tTest %d:\tShould be deterministic.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould be deterministic.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_RootOrderSensitive(t *testing.T) {
	for n := 2; n <= 9; n++ {
		_, digests := makeData(n)

		reversed := make([]signature.Digest, n)
		for i := range digests {
			reversed[n-1-i] = digests[i]
		}

		if merkle.Root(digests) == merkle.Root(reversed) {
			t.Fatalf("[n:%d] Should get a different root for a reversed list.", n)
		}
	}
}

func Test_RootDoesNotMutateInput(t *testing.T) {
	_, digests := makeData(3)
	cpy := append([]signature.Digest{}, digests...)

	merkle.Root(digests)

	for i := range digests {
		if digests[i] != cpy[i] {
			t.Fatalf("Should not mutate the input list.")
		}
	}
}

func Test_TreeMatchesRoot(t *testing.T) {
	for n := 0; n <= 9; n++ {
		data, digests := makeData(n)

		tree, err := merkle.NewTree(data)
		if err != nil {
			t.Fatalf("[n:%d] Should be able to build a tree: %s", n, err)
		}

		exp := merkle.Root(digests)
		if !bytes.Equal(tree.MerkleRoot, exp[:]) {
			t.Logf("got: %s", tree.RootHex())
			t.Logf("exp: %s", exp)
			t.Fatalf("[n:%d] Should get the same root from the tree.", n)
		}

		if err := tree.Verify(); err != nil {
			t.Fatalf("[n:%d] Should be able to verify the tree: %s", n, err)
		}

		if got := len(tree.Values()); got != n {
			t.Fatalf("[n:%d] Should get back %d values, got %d.", n, n, got)
		}
	}
}

func Test_Proof(t *testing.T) {
	for n := 1; n <= 9; n++ {
		data, _ := makeData(n)

		tree, err := merkle.NewTree(data)
		if err != nil {
			t.Fatalf("[n:%d] Should be able to build a tree: %s", n, err)
		}

		for _, d := range data {
			if err := tree.VerifyData(d); err != nil {
				t.Fatalf("[n:%d] Should be able to verify %q: %s", n, d.x, err)
			}

			proof, order, err := tree.Proof(d)
			if err != nil {
				t.Fatalf("[n:%d] Should be able to produce a proof: %s", n, err)
			}

			hash, _ := d.Hash()
			if !merkle.VerifyProof(tree.MerkleRoot, hash, proof, order, nil) {
				t.Fatalf("[n:%d] Should verify the proof for %q.", n, d.x)
			}

			other, _ := Data{x: "missing"}.Hash()
			if merkle.VerifyProof(tree.MerkleRoot, other, proof, order, nil) {
				t.Fatalf("[n:%d] Should not verify the proof for other data.", n)
			}
		}

		if _, _, err := tree.Proof(Data{x: "missing"}); err == nil {
			t.Fatalf("[n:%d] Should not produce a proof for missing data.", n)
		}
	}
}

func Test_VerifyTampered(t *testing.T) {
	data, _ := makeData(4)

	tree, err := merkle.NewTree(data)
	if err != nil {
		t.Fatalf("Should be able to build a tree: %s", err)
	}

	tree.MerkleRoot = []byte{1}
	if err := tree.Verify(); err == nil {
		t.Fatalf("Should detect a tampered root.")
	}

	if err := tree.Rebuild(); err != nil {
		t.Fatalf("Should be able to rebuild the tree: %s", err)
	}

	if err := tree.Verify(); err != nil {
		t.Fatalf("Should be able to verify the rebuilt tree: %s", err)
	}
}

func Test_HashStrategy(t *testing.T) {
	data, _ := makeData(2)

	single := func(b []byte) []byte {
		h := sha256.Sum256(b)
		return h[:]
	}

	tree, err := merkle.NewTree(data, merkle.WithHashStrategy[Data](single))
	if err != nil {
		t.Fatalf("Should be able to build a tree: %s", err)
	}

	l, _ := data[0].Hash()
	r, _ := data[1].Hash()
	exp := single(append(l, r...))

	if !bytes.Equal(tree.MerkleRoot, exp) {
		t.Fatalf("Should use the configured hash strategy.")
	}
}
