// Package testutil provides census fixtures shared by the tests of several
// packages: a cached circuit setup and a populated accumulator able to build
// valid proofs for its members.
package testutil

import (
	"fmt"
	"sync"

	"github.com/vocdoni/zk-census/accumulator"
	"github.com/vocdoni/zk-census/circuits/census"
	"github.com/vocdoni/zk-census/identity"
	"github.com/vocdoni/zk-census/types"
	"go.vocdoni.io/dvote/db"
)

var (
	keysOnce sync.Once
	keys     *census.Keys
	keysErr  error
)

// CensusKeys returns the keys of the census circuit. The setup runs once per
// test binary.
func CensusKeys() (*census.Keys, error) {
	keysOnce.Do(func() {
		keys, keysErr = census.Setup()
	})
	return keys, keysErr
}

// Member is an enrolled identity.
type Member struct {
	Identity *identity.Identity
	Index    uint64
}

// Census is an accumulator populated with random members.
type Census struct {
	Tree    *accumulator.Tree
	Members []*Member
}

// NewCensus enrolls n random identities in a fresh accumulator stored in
// database.
func NewCensus(database db.Database, n int) (*Census, error) {
	tree, err := accumulator.New(database, types.TreeDepth)
	if err != nil {
		return nil, err
	}
	c := &Census{Tree: tree}
	for i := 0; i < n; i++ {
		if _, err := c.Enroll(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Enroll adds a new random identity to the census.
func (c *Census) Enroll() (*Member, error) {
	id, err := identity.New()
	if err != nil {
		return nil, err
	}
	index, _, err := c.Tree.Append(id.Commitment())
	if err != nil {
		return nil, err
	}
	m := &Member{Identity: id, Index: index}
	c.Members = append(c.Members, m)
	return m, nil
}

// Root returns the current accumulator root.
func (c *Census) Root() (types.Hash, error) {
	return c.Tree.Root()
}

// Prove builds a valid census proof for the member against the current root.
func (c *Census) Prove(m *Member, externalNullifier, signalHash types.Hash) (*census.Proof, error) {
	k, err := CensusKeys()
	if err != nil {
		return nil, fmt.Errorf("census setup: %w", err)
	}
	path, err := c.Tree.Proof(m.Index)
	if err != nil {
		return nil, err
	}
	return k.Prove(&census.Inputs{
		IdentityNullifier: m.Identity.Nullifier,
		IdentityTrapdoor:  m.Identity.Trapdoor,
		LeafIndex:         m.Index,
		Siblings:          path.Siblings,
		Root:              path.Root,
		SignalHash:        signalHash,
		ExternalNullifier: externalNullifier,
	})
}
