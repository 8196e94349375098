package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/vocdoni/zk-census/storage"
	"github.com/vocdoni/zk-census/types"
)

// ExternalNullifier returns the value every proof or attestation of the
// given scope must carry: the little-endian encoding of the scope in the
// first 8 bytes, the remaining 24 bytes set to zero.
func ExternalNullifier(scope uint64) types.Hash {
	var h types.Hash
	binary.LittleEndian.PutUint64(h[:8], scope)
	return h
}

// checkBinding verifies that the root and the external nullifier match the
// ledger state, in that order.
func checkBinding(st *storage.LedgerState, root, externalNullifier types.Hash) error {
	if root != st.CurrentRoot {
		return fmt.Errorf("%w: got %s, current %s", ErrInvalidMerkleRoot, root, st.CurrentRoot)
	}
	if externalNullifier != ExternalNullifier(st.CurrentScope) {
		return fmt.Errorf("%w: got %s, current scope %d", ErrScopeMismatch, externalNullifier, st.CurrentScope)
	}
	return nil
}
