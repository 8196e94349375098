// Package accumulator implements the membership accumulator of the census:
// an append-only binary Merkle tree of fixed depth whose nodes are
// MiMC(left, right). Empty leaves are zero. The tree is persisted in a dvote
// key-value database and its paths are the ones the census circuit checks.
package accumulator

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/vocdoni/zk-census/crypto/hash/mimc"
	"github.com/vocdoni/zk-census/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	// ErrTreeFull is returned when appending to a tree with no free leaves.
	ErrTreeFull = errors.New("accumulator is full")
	// ErrInvalidLeaf is returned when appending the zero value, which is
	// reserved for empty leaves.
	ErrInvalidLeaf = errors.New("invalid leaf")
	// ErrIndexOutOfRange is returned when asking for a leaf not yet appended.
	ErrIndexOutOfRange = errors.New("leaf index out of range")

	nodePrefix = []byte("n/")
	stateKey   = []byte("state")
)

// state is the persisted summary of the tree.
type state struct {
	Size uint64     `cbor:"0,keyasint,omitempty"`
	Root types.Hash `cbor:"1,keyasint,omitempty"`
}

// Tree is an append-only Merkle tree. It is safe for concurrent use.
type Tree struct {
	mu    sync.RWMutex
	db    db.Database
	depth int
	zeros []types.Hash
}

// New opens the tree stored in database, creating an empty one if nothing is
// stored yet.
func New(database db.Database, depth int) (*Tree, error) {
	if depth <= 0 || depth > 63 {
		return nil, fmt.Errorf("invalid tree depth %d", depth)
	}
	t := &Tree{
		db:    database,
		depth: depth,
		zeros: make([]types.Hash, depth+1),
	}
	for i := 1; i <= depth; i++ {
		t.zeros[i] = mimc.Hash2(t.zeros[i-1], t.zeros[i-1])
	}
	return t, nil
}

// Depth returns the depth of the tree.
func (t *Tree) Depth() int {
	return t.depth
}

// Capacity returns the maximum number of leaves.
func (t *Tree) Capacity() uint64 {
	return uint64(1) << t.depth
}

// Append adds a leaf to the next free position and returns its index and the
// new root.
func (t *Tree) Append(leaf types.Hash) (uint64, types.Hash, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	wTx := t.db.WriteTx()
	defer wTx.Discard()
	index, root, err := t.AppendTx(wTx, leaf)
	if err != nil {
		return 0, types.Hash{}, err
	}
	if err := wTx.Commit(); err != nil {
		return 0, types.Hash{}, fmt.Errorf("cannot commit tree update: %w", err)
	}
	return index, root, nil
}

// AppendTx appends the leaf within wTx, which must write to the tree's key
// space. Nothing is visible until the caller commits wTx, and discarding it
// leaves the tree unchanged. Callers must serialize their write transactions.
func (t *Tree) AppendTx(wTx db.WriteTx, leaf types.Hash) (uint64, types.Hash, error) {
	if leaf.IsZero() {
		return 0, types.Hash{}, ErrInvalidLeaf
	}
	st, err := t.state(wTx)
	if err != nil {
		return 0, types.Hash{}, err
	}
	if st.Size >= t.Capacity() {
		return 0, types.Hash{}, ErrTreeFull
	}
	index := st.Size

	nodes := prefixeddb.NewPrefixedWriteTx(wTx, nodePrefix)

	node := mimc.Canonical(leaf)
	pos := index
	for level := 0; level < t.depth; level++ {
		if err := nodes.Set(nodeKey(level, pos), node[:]); err != nil {
			return 0, types.Hash{}, fmt.Errorf("cannot store node: %w", err)
		}
		sibling, err := t.node(nodes, level, pos^1)
		if err != nil {
			return 0, types.Hash{}, err
		}
		if pos&1 == 0 {
			node = mimc.Hash2(node, sibling)
		} else {
			node = mimc.Hash2(sibling, node)
		}
		pos >>= 1
	}
	if err := nodes.Set(nodeKey(t.depth, 0), node[:]); err != nil {
		return 0, types.Hash{}, fmt.Errorf("cannot store root: %w", err)
	}
	st.Size++
	st.Root = node
	data, err := encode(st)
	if err != nil {
		return 0, types.Hash{}, err
	}
	if err := wTx.Set(stateKey, data); err != nil {
		return 0, types.Hash{}, fmt.Errorf("cannot store tree state: %w", err)
	}
	return index, node, nil
}

// Root returns the current root. The root of the empty tree is the zero hash
// of the top level.
func (t *Tree) Root() (types.Hash, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, err := t.state(t.db)
	if err != nil {
		return types.Hash{}, err
	}
	if st.Size == 0 {
		return t.zeros[t.depth], nil
	}
	return st.Root, nil
}

// Size returns the number of appended leaves.
func (t *Tree) Size() (uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, err := t.state(t.db)
	if err != nil {
		return 0, err
	}
	return st.Size, nil
}

// Proof returns the Merkle path of the leaf at index against the current
// root.
func (t *Tree) Proof(index uint64) (*MerkleProof, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, err := t.state(t.db)
	if err != nil {
		return nil, err
	}
	if index >= st.Size {
		return nil, fmt.Errorf("%w: %d (size %d)", ErrIndexOutOfRange, index, st.Size)
	}
	nodes := prefixeddb.NewPrefixedReader(t.db, nodePrefix)
	leaf, err := t.node(nodes, 0, index)
	if err != nil {
		return nil, err
	}
	proof := &MerkleProof{
		Leaf:     leaf,
		Index:    index,
		Root:     st.Root,
		Siblings: make([]types.Hash, t.depth),
	}
	pos := index
	for level := 0; level < t.depth; level++ {
		if proof.Siblings[level], err = t.node(nodes, level, pos^1); err != nil {
			return nil, err
		}
		pos >>= 1
	}
	return proof, nil
}

func (t *Tree) state(r db.Reader) (*state, error) {
	data, err := r.Get(stateKey)
	if errors.Is(err, db.ErrKeyNotFound) {
		return &state{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read tree state: %w", err)
	}
	st := &state{}
	if err := cbor.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("cannot decode tree state: %w", err)
	}
	return st, nil
}

// node returns the stored node or the zero hash of the level if the subtree
// is empty.
func (t *Tree) node(r db.Reader, level int, pos uint64) (types.Hash, error) {
	data, err := r.Get(nodeKey(level, pos))
	if errors.Is(err, db.ErrKeyNotFound) {
		return t.zeros[level], nil
	}
	if err != nil {
		return types.Hash{}, fmt.Errorf("cannot read node %d/%d: %w", level, pos, err)
	}
	return types.HashFromBytes(data)
}

func nodeKey(level int, pos uint64) []byte {
	key := make([]byte, 9)
	key[0] = byte(level)
	binary.BigEndian.PutUint64(key[1:], pos)
	return key
}

func encode(st *state) ([]byte, error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("encode tree state: %w", err)
	}
	return em.Marshal(st)
}
