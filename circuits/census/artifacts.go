package census

import (
	"context"
	"fmt"

	"github.com/vocdoni/zk-census/circuits"
	"github.com/vocdoni/zk-census/crypto/groth16"
	"github.com/vocdoni/zk-census/types"
)

// FetchVerificationKey returns the census verification key stored in the
// artifact, downloading it into the cache when missing. The key may be in
// gnark binary or snarkjs JSON form.
func FetchVerificationKey(ctx context.Context, cache *circuits.Cache, a *circuits.Artifact) (*groth16.VerificationKey, error) {
	content, err := cache.Fetch(ctx, a)
	if err != nil {
		return nil, err
	}
	vk, err := groth16.LoadVerificationKey(content)
	if err != nil {
		return nil, err
	}
	if vk.NumPublicInputs() != types.PublicInputsLen {
		return nil, fmt.Errorf("%w: census key has %d public inputs, expected %d",
			groth16.ErrInvalidVerificationKey, vk.NumPublicInputs(), types.PublicInputsLen)
	}
	return vk, nil
}
