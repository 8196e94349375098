package service

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"net/http"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/zk-census/api"
	"github.com/vocdoni/zk-census/crypto/groth16"
	"github.com/vocdoni/zk-census/ledger"
	"github.com/vocdoni/zk-census/storage"
	"github.com/vocdoni/zk-census/types"
	"go.vocdoni.io/dvote/db/metadb"
)

// rejectingVerifier rejects every proof. The services under test never
// verify proofs.
type rejectingVerifier struct{}

func (rejectingVerifier) Verify(*groth16.Proof, []types.Hash) error { return groth16.ErrProofRejected }
func (rejectingVerifier) NumPublicInputs() int { return types.PublicInputsLen }

func newTestLedger(c *qt.C, clock func() time.Time) *ledger.Ledger {
	l, err := ledger.New(storage.New(metadb.NewTest(c.TB)), ledger.Options{
		Verifier: rejectingVerifier{},
		Clock:    clock,
	})
	c.Assert(err, qt.IsNil)
	return l
}

func newAdmin(c *qt.C) types.Identity {
	pub, _, err := ed25519.GenerateKey(nil)
	c.Assert(err, qt.IsNil)
	id, err := types.IdentityFromPublicKey(pub)
	c.Assert(err, qt.IsNil)
	return id
}

func TestAPIService(t *testing.T) {
	c := qt.New(t)

	// Port 0 lets the OS choose an available port
	apiService := NewAPI(&api.APIConfig{
		Host:   "127.0.0.1",
		Port:   0,
		Ledger: newTestLedger(c, nil),
	})

	ctx := context.Background()
	err := apiService.Start(ctx)
	c.Assert(err, qt.IsNil)
	defer apiService.Stop()

	host, port := apiService.HostPort()
	c.Assert(port, qt.Not(qt.Equals), 0)
	resp, err := http.Get(fmt.Sprintf("http://%s:%d%s", host, port, api.PingEndpoint))
	c.Assert(err, qt.IsNil)
	c.Assert(resp.Body.Close(), qt.IsNil)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)

	// Test stopping and restarting
	apiService.Stop()
	_, err = http.Get(fmt.Sprintf("http://%s:%d%s", host, port, api.PingEndpoint))
	c.Assert(err, qt.Not(qt.IsNil))
	err = apiService.Start(ctx)
	c.Assert(err, qt.IsNil)

	// Test starting an already running service
	err = apiService.Start(ctx)
	c.Assert(err, qt.ErrorMatches, "service already running")
}
