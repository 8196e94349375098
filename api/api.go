package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vocdoni/zk-census/accumulator"
	"github.com/vocdoni/zk-census/attestation"
	"github.com/vocdoni/zk-census/ledger"
	"github.com/vocdoni/zk-census/log"
	"github.com/vocdoni/zk-census/types"
)

// APIConfig type represents the configuration for the API HTTP server.
// Ledger is required, Accumulator and Issuer enable their endpoints.
type APIConfig struct {
	Host        string
	Port        int
	Ledger      *ledger.Ledger
	Accumulator *accumulator.Tree   // Optional: serves Merkle paths and the root to publish
	Issuer      *attestation.Issuer // Optional: signs attestations for valid proofs
	Admin       types.Identity      // Optional: the only identity allowed to initialize the census
}

// API type represents the API HTTP server with JWT authentication for the
// admin endpoints.
type API struct {
	router      *chi.Mux
	server      *http.Server
	listener    net.Listener
	ledger      *ledger.Ledger
	accumulator *accumulator.Tree
	issuer      *attestation.Issuer
	admin       types.Identity
}

// New creates a new API instance with the given configuration and starts
// serving it. Port 0 lets the OS choose a free port, see Addr.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Ledger == nil {
		return nil, fmt.Errorf("missing ledger instance")
	}
	a := &API{
		ledger:      conf.Ledger,
		accumulator: conf.Accumulator,
		issuer:      conf.Issuer,
		admin:       conf.Admin,
	}

	// Initialize router
	a.initRouter()

	listener, err := net.Listen("tcp", net.JoinHostPort(conf.Host, fmt.Sprint(conf.Port)))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s:%d: %w", conf.Host, conf.Port, err)
	}
	a.listener = listener
	a.server = &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("starting API server", "address", listener.Addr().String())
		if err := a.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Errorw(err, "API server stopped")
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// Addr returns the address the server is listening on.
func (a *API) Addr() net.Addr {
	return a.listener.Addr()
}

// Close stops the HTTP server, waiting for the ongoing requests until ctx is
// done.
func (a *API) Close(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", MetricsEndpoint, "method", "GET")
	a.router.Handle(MetricsEndpoint, promhttp.Handler())

	// census queries and submissions
	log.Infow("register handler", "endpoint", CensusEndpoint, "method", "GET")
	a.router.Get(CensusEndpoint, a.censusState)
	log.Infow("register handler", "endpoint", AggregateEndpoint, "method", "GET")
	a.router.Get(AggregateEndpoint, a.scopeAggregate)
	log.Infow("register handler", "endpoint", NullifierEndpoint, "method", "GET")
	a.router.Get(NullifierEndpoint, a.nullifier)
	log.Infow("register handler", "endpoint", ProofsEndpoint, "method", "POST")
	a.router.Post(ProofsEndpoint, a.submitProof)
	log.Infow("register handler", "endpoint", CensusAttestationsEndpoint, "method", "POST")
	a.router.Post(CensusAttestationsEndpoint, a.submitAttestation)

	// trusted verifier
	log.Infow("register handler", "endpoint", AttestationsEndpoint, "method", "POST")
	a.router.Post(AttestationsEndpoint, a.issueAttestation)

	// accumulator
	log.Infow("register handler", "endpoint", AccumulatorProofEndpoint, "method", "GET")
	a.router.Get(AccumulatorProofEndpoint, a.accumulatorProof)

	// admin operations, authenticated with a JWT
	a.router.Group(func(r chi.Router) {
		r.Use(adminAuth)
		log.Infow("register handler", "endpoint", AdminInitializeEndpoint, "method", "POST")
		r.Post(AdminInitializeEndpoint, a.initialize)
		log.Infow("register handler", "endpoint", AdminEnrollmentsEndpoint, "method", "POST")
		r.Post(AdminEnrollmentsEndpoint, a.recordEnrollment)
		log.Infow("register handler", "endpoint", AdminRootEndpoint, "method", "POST")
		r.Post(AdminRootEndpoint, a.publishRoot)
		log.Infow("register handler", "endpoint", AdminScopeEndpoint, "method", "POST")
		r.Post(AdminScopeEndpoint, a.advanceScope)
		log.Infow("register handler", "endpoint", AdminActiveEndpoint, "method", "POST")
		r.Post(AdminActiveEndpoint, a.setActive)
	})
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	// Register the API handlers
	a.registerHandlers()
}
