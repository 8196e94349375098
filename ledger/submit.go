package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/vocdoni/zk-census/attestation"
	"github.com/vocdoni/zk-census/crypto/groth16"
	"github.com/vocdoni/zk-census/events"
	"github.com/vocdoni/zk-census/log"
	"github.com/vocdoni/zk-census/metrics"
	"github.com/vocdoni/zk-census/storage"
	"github.com/vocdoni/zk-census/types"
)

// ProofSubmission is a census proof in its raw encoding. PublicInputs are
// ordered root, nullifier hash, signal hash, external nullifier.
type ProofSubmission struct {
	A            types.HexBytes `json:"a"`
	B            types.HexBytes `json:"b"`
	C            types.HexBytes `json:"c"`
	PublicInputs []types.Hash   `json:"publicInputs"`
}

// SubmitProof counts the identity behind a census proof. The checks run in
// this order: the census is active, the proof is well formed, its root is
// the current root, its external nullifier is the current one, the proof
// verifies and its nullifier hash was never claimed.
func (l *Ledger) SubmitProof(ctx context.Context, sub *ProofSubmission) (*storage.NullifierRecord, error) {
	const op = "submit_proof"
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st, err := l.State()
	if err != nil {
		return nil, reject(op, err)
	}
	if err := checkActive(st); err != nil {
		return nil, reject(op, err)
	}
	if sub == nil {
		return nil, reject(op, fmt.Errorf("%w: empty submission", ErrInvalidProofFormat))
	}
	proof, err := groth16.ParseProof(sub.A, sub.B, sub.C)
	if err != nil {
		return nil, reject(op, err)
	}
	if len(sub.PublicInputs) != types.PublicInputsLen {
		return nil, reject(op, fmt.Errorf("%w: got %d public inputs, expected %d",
			ErrInvalidProofFormat, len(sub.PublicInputs), types.PublicInputsLen))
	}
	root := sub.PublicInputs[0]
	nullifierHash := sub.PublicInputs[1]
	signalHash := sub.PublicInputs[2]
	externalNullifier := sub.PublicInputs[3]
	if err := checkBinding(st, root, externalNullifier); err != nil {
		return nil, reject(op, err, "nullifier", nullifierHash.String())
	}

	start := time.Now()
	err = l.verifier.Verify(proof, sub.PublicInputs)
	metrics.VerificationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if !errors.Is(err, ErrInvalidProof) && !errors.Is(err, ErrInvalidProofFormat) {
			err = fmt.Errorf("%w: %v", ErrInvalidProof, err)
		}
		return nil, reject(op, err, "nullifier", nullifierHash.String())
	}
	return l.count(ctx, op, storage.PathProof, root, externalNullifier, nullifierHash, signalHash)
}

// SubmitAttestation counts the identity behind an attestation signed by a
// trusted verifier. The checks run in this order: the census is active, the
// attestation is well formed, it is fresh, its root is the current root, its
// external nullifier is the current one, the signer is trusted, the
// signature is valid and its nullifier hash was never claimed.
func (l *Ledger) SubmitAttestation(ctx context.Context, att *attestation.Attestation) (*storage.NullifierRecord, error) {
	const op = "submit_attestation"
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st, err := l.State()
	if err != nil {
		return nil, reject(op, err)
	}
	if err := checkActive(st); err != nil {
		return nil, reject(op, err)
	}
	if att == nil {
		return nil, reject(op, fmt.Errorf("%w: empty attestation", ErrInvalidAttestationFormat))
	}
	if err := att.Validate(); err != nil {
		return nil, reject(op, err)
	}
	if err := attestation.CheckFreshness(att.Timestamp, l.now().Unix()); err != nil {
		return nil, reject(op, err, "nullifier", att.NullifierHash.String())
	}
	if err := checkBinding(st, att.Root, att.ExternalNullifier); err != nil {
		return nil, reject(op, err, "nullifier", att.NullifierHash.String())
	}
	if l.signers == nil {
		return nil, reject(op, fmt.Errorf("%w: no trusted signers configured", ErrUntrustedVerifier))
	}
	if err := l.signers.Verify(att); err != nil {
		return nil, reject(op, err, "signer", att.Signer.String())
	}
	return l.count(ctx, op, storage.PathAttestation, att.Root, att.ExternalNullifier, att.NullifierHash, att.SignalHash)
}

// count applies the effects shared by both admission paths in a single
// transaction: claim the nullifier, increment the population and update the
// scope aggregate. The binding is checked again inside the transaction since
// the root or the scope may have changed after the admission checks.
func (l *Ledger) count(ctx context.Context, op, path string,
	root, externalNullifier, nullifierHash, signalHash types.Hash,
) (*storage.NullifierRecord, error) {
	now := l.now().Unix()
	var rec *storage.NullifierRecord
	var payload events.CensusCounted
	err := l.update(func(tx *storage.Tx, st *storage.LedgerState) error {
		if err := checkActive(st); err != nil {
			return err
		}
		if err := checkBinding(st, root, externalNullifier); err != nil {
			return err
		}
		rec = &storage.NullifierRecord{
			NullifierHash: nullifierHash,
			Scope:         st.CurrentScope,
			Timestamp:     now,
			Path:          path,
		}
		if err := tx.ClaimNullifier(rec); err != nil {
			if errors.Is(err, storage.ErrNullifierExists) {
				return fmt.Errorf("%w: %s", ErrNullifierAlreadyUsed, nullifierHash)
			}
			return err
		}
		if st.CurrentPopulation == math.MaxUint64 {
			return fmt.Errorf("%w: population", ErrArithmeticOverflow)
		}
		st.CurrentPopulation++

		agg, err := tx.Aggregate(st.CurrentScope)
		if err != nil {
			return err
		}
		if agg.ParticipantCount == math.MaxUint64 {
			return fmt.Errorf("%w: participant count", ErrArithmeticOverflow)
		}
		agg.ParticipantCount++
		if attr, ok := Attribute(signalHash); ok {
			if agg.AttributeCounts[attr] == math.MaxUint64 {
				return fmt.Errorf("%w: attribute count", ErrArithmeticOverflow)
			}
			agg.AttributeCounts[attr]++
		}
		agg.LastUpdated = now
		if err := tx.SetAggregate(agg); err != nil {
			return err
		}
		payload = events.CensusCounted{
			NullifierHash: nullifierHash,
			Scope:         st.CurrentScope,
			NewPopulation: st.CurrentPopulation,
			Path:          path,
		}
		return nil
	})
	if err != nil {
		return nil, reject(op, err, "nullifier", nullifierHash.String())
	}
	log.Infow("census counted", "path", path, "scope", payload.Scope, "population", payload.NewPopulation)
	l.emit(ctx, events.New(events.KindCensusCounted, now, payload))
	return rec, nil
}

// Attribute returns the attribute index selected by a signal: signals 1 to
// AttributeCount, read as big-endian integers, select attributes 0 to
// AttributeCount-1. Any other signal selects no attribute.
func Attribute(signalHash types.Hash) (int, bool) {
	for _, b := range signalHash[:types.HashLen-1] {
		if b != 0 {
			return 0, false
		}
	}
	v := int(signalHash[types.HashLen-1])
	if v < 1 || v > types.AttributeCount {
		return 0, false
	}
	return v - 1, true
}
