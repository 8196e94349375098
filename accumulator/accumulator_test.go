package accumulator

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/zk-census/crypto/hash/mimc"
	"github.com/vocdoni/zk-census/types"
	"go.vocdoni.io/dvote/db/metadb"
)

func leaf(i byte) types.Hash {
	return types.Hash{31: i}
}

func TestAppendAndProof(t *testing.T) {
	c := qt.New(t)
	tree, err := New(metadb.NewTest(t), 4)
	c.Assert(err, qt.IsNil)

	emptyRoot, err := tree.Root()
	c.Assert(err, qt.IsNil)
	c.Assert(emptyRoot, qt.Equals, tree.zeros[4])

	var roots []types.Hash
	for i := byte(1); i <= 5; i++ {
		index, root, err := tree.Append(leaf(i))
		c.Assert(err, qt.IsNil)
		c.Assert(index, qt.Equals, uint64(i-1))
		roots = append(roots, root)
	}
	size, err := tree.Size()
	c.Assert(err, qt.IsNil)
	c.Assert(size, qt.Equals, uint64(5))
	root, err := tree.Root()
	c.Assert(err, qt.IsNil)
	c.Assert(root, qt.Equals, roots[4])

	for i := uint64(0); i < 5; i++ {
		proof, err := tree.Proof(i)
		c.Assert(err, qt.IsNil)
		c.Assert(proof.Leaf, qt.Equals, leaf(byte(i+1)))
		c.Assert(proof.Siblings, qt.HasLen, 4)
		c.Assert(proof.Verify(), qt.IsTrue)
	}

	// a tampered path does not verify
	proof, err := tree.Proof(2)
	c.Assert(err, qt.IsNil)
	proof.Index = 3
	c.Assert(proof.Verify(), qt.IsFalse)

	_, err = tree.Proof(5)
	c.Assert(err, qt.ErrorIs, ErrIndexOutOfRange)
}

func TestRootMatchesManualComputation(t *testing.T) {
	c := qt.New(t)
	tree, err := New(metadb.NewTest(t), 2)
	c.Assert(err, qt.IsNil)

	_, _, err = tree.Append(leaf(1))
	c.Assert(err, qt.IsNil)
	_, root, err := tree.Append(leaf(2))
	c.Assert(err, qt.IsNil)

	var zero types.Hash
	expected := mimc.Hash2(mimc.Hash2(leaf(1), leaf(2)), mimc.Hash2(zero, zero))
	c.Assert(root, qt.Equals, expected)
}

func TestTreeFull(t *testing.T) {
	c := qt.New(t)
	tree, err := New(metadb.NewTest(t), 1)
	c.Assert(err, qt.IsNil)

	_, _, err = tree.Append(leaf(1))
	c.Assert(err, qt.IsNil)
	_, _, err = tree.Append(leaf(2))
	c.Assert(err, qt.IsNil)
	_, _, err = tree.Append(leaf(3))
	c.Assert(err, qt.ErrorIs, ErrTreeFull)

	_, _, err = tree.Append(types.Hash{})
	c.Assert(err, qt.ErrorIs, ErrInvalidLeaf)
}

func TestPersistence(t *testing.T) {
	c := qt.New(t)
	database := metadb.NewTest(t)
	tree, err := New(database, 8)
	c.Assert(err, qt.IsNil)
	_, root, err := tree.Append(leaf(9))
	c.Assert(err, qt.IsNil)

	reopened, err := New(database, 8)
	c.Assert(err, qt.IsNil)
	got, err := reopened.Root()
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, root)
	index, _, err := reopened.Append(leaf(10))
	c.Assert(err, qt.IsNil)
	c.Assert(index, qt.Equals, uint64(1))
}

func TestAppendTx(t *testing.T) {
	c := qt.New(t)
	database := metadb.NewTest(t)
	tree, err := New(database, 4)
	c.Assert(err, qt.IsNil)
	emptyRoot, err := tree.Root()
	c.Assert(err, qt.IsNil)

	// discarded appends leave no trace
	wTx := database.WriteTx()
	index, _, err := tree.AppendTx(wTx, leaf(1))
	c.Assert(err, qt.IsNil)
	c.Assert(index, qt.Equals, uint64(0))
	// a second append in the same transaction sees the first one
	index, pending, err := tree.AppendTx(wTx, leaf(2))
	c.Assert(err, qt.IsNil)
	c.Assert(index, qt.Equals, uint64(1))
	wTx.Discard()

	size, err := tree.Size()
	c.Assert(err, qt.IsNil)
	c.Assert(size, qt.Equals, uint64(0))
	root, err := tree.Root()
	c.Assert(err, qt.IsNil)
	c.Assert(root, qt.Equals, emptyRoot)

	// committed appends match plain appends
	wTx = database.WriteTx()
	_, _, err = tree.AppendTx(wTx, leaf(1))
	c.Assert(err, qt.IsNil)
	_, _, err = tree.AppendTx(wTx, leaf(2))
	c.Assert(err, qt.IsNil)
	c.Assert(wTx.Commit(), qt.IsNil)
	root, err = tree.Root()
	c.Assert(err, qt.IsNil)
	c.Assert(root, qt.Equals, pending)
	index, _, err = tree.Append(leaf(3))
	c.Assert(err, qt.IsNil)
	c.Assert(index, qt.Equals, uint64(2))
}
