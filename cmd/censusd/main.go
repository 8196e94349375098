// Command censusd runs a census node: the ledger, its HTTP API, the optional
// scope rotator and the event sinks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/vocdoni/zk-census/accumulator"
	"github.com/vocdoni/zk-census/api"
	"github.com/vocdoni/zk-census/attestation"
	"github.com/vocdoni/zk-census/circuits"
	"github.com/vocdoni/zk-census/circuits/census"
	"github.com/vocdoni/zk-census/crypto/groth16"
	"github.com/vocdoni/zk-census/events"
	"github.com/vocdoni/zk-census/ledger"
	"github.com/vocdoni/zk-census/log"
	"github.com/vocdoni/zk-census/metrics"
	"github.com/vocdoni/zk-census/service"
	"github.com/vocdoni/zk-census/storage"
	"github.com/vocdoni/zk-census/types"
	"github.com/vocdoni/zk-census/util"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
	"golang.org/x/sync/errgroup"
)

const (
	artifactsTimeout = 5 * time.Minute
	// event sinks are skipped for breakerCooldown after breakerThreshold
	// consecutive failures
	breakerThreshold = 5
	breakerCooldown  = 30 * time.Second
	redisMaxLen      = 100000
)

type runnable interface {
	Start(ctx context.Context) error
	Stop()
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log.Init(cfg.LogLevel, cfg.LogOutput, nil)
	if cfg.LogErrorFile != "" {
		if err := log.SetFileErrorLog(cfg.LogErrorFile); err != nil {
			log.Fatal(err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		log.Fatal(err)
	}
	log.Info("census node stopped")
}

func run(ctx context.Context, cfg *config) error {
	database, err := metadb.New(db.TypePebble, filepath.Join(cfg.DataDir, "db"))
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	stg := storage.New(database)
	defer stg.Close()

	tree, err := accumulator.New(stg.AccumulatorDB(), types.TreeDepth)
	if err != nil {
		return err
	}
	vk, err := loadVerificationKey(ctx, cfg)
	if err != nil {
		return err
	}
	verifier, err := groth16.NewVerifier(vk)
	if err != nil {
		return err
	}

	trusted, err := util.ParseIdentities(cfg.TrustedSigners)
	if err != nil {
		return err
	}
	signers := attestation.NewTrustedSigners(trusted...)
	var issuer *attestation.Issuer
	if cfg.IssuerKey != "" {
		key, err := util.ParsePrivateKey(cfg.IssuerKey)
		if err != nil {
			return fmt.Errorf("invalid issuer key: %w", err)
		}
		if issuer, err = attestation.NewIssuer(key, verifier); err != nil {
			return err
		}
		// the node trusts its own attestations
		signers.Add(issuer.Identity())
		log.Infow("attestation issuer enabled", "identity", issuer.Identity().String())
	}

	sink, closeSinks, err := eventSinks(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	l, err := ledger.New(stg, ledger.Options{
		Verifier:       verifier,
		TrustedSigners: signers,
		Accumulator:    tree,
		Events:         sink,
	})
	if err != nil {
		return err
	}
	admin, err := cfg.adminIdentity()
	if err != nil {
		return err
	}
	if st, err := l.State(); err == nil {
		metrics.Scope.Set(float64(st.CurrentScope))
		metrics.Population.Set(float64(st.CurrentPopulation))
		log.Infow("census loaded", "scope", st.CurrentScope, "population", st.CurrentPopulation,
			"leaves", st.LeafCount, "active", st.IsActive)
	} else {
		log.Infow("census not initialized yet", "error", err.Error())
		if admin.IsZero() {
			log.Warnw("no admin configured, the first caller of /admin/initialize becomes admin")
		}
	}

	services := map[string]runnable{
		"api": service.NewAPI(&api.APIConfig{
			Host:        cfg.Host,
			Port:        cfg.Port,
			Ledger:      l,
			Accumulator: tree,
			Issuer:      issuer,
			Admin:       admin,
		}),
	}
	if cfg.ScopeRotation {
		services["scopeRotator"] = service.NewScopeRotator(l, admin, cfg.ScopeRotationInterval)
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, s := range services {
		g.Go(func() error {
			return runService(gctx, name, s)
		})
	}
	return g.Wait()
}

// runService starts s and stops it once ctx is done.
func runService(ctx context.Context, name string, s runnable) error {
	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("cannot start %s: %w", name, err)
	}
	log.Infow("service started", "service", name)
	<-ctx.Done()
	s.Stop()
	log.Infow("service stopped", "service", name)
	return nil
}

// loadVerificationKey reads the verification key from the vkey file or
// fetches it into the artifacts cache under the data directory.
func loadVerificationKey(ctx context.Context, cfg *config) (*groth16.VerificationKey, error) {
	if cfg.VKey != "" {
		data, err := os.ReadFile(cfg.VKey)
		if err != nil {
			return nil, fmt.Errorf("cannot read verification key: %w", err)
		}
		return groth16.LoadVerificationKey(data)
	}
	artifact, err := circuits.NewArtifact(cfg.VKeyURL, cfg.VKeyHash)
	if err != nil {
		return nil, err
	}
	cache, err := circuits.NewCache(filepath.Join(cfg.DataDir, "artifacts"))
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, artifactsTimeout)
	defer cancel()
	vk, err := census.FetchVerificationKey(ctx, cache, artifact)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch verification key: %w", err)
	}
	return vk, nil
}

// eventSinks returns the sink receiving the ledger events and a function
// closing the external ones.
func eventSinks(ctx context.Context, cfg *config) (events.Sink, func(), error) {
	multi := events.NewMulti(events.LogSink{}, metrics.Sink{})
	closers := []func(){}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := events.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot create kafka sink: %w", err)
		}
		closers = append(closers, kafka.Close)
		multi.Add(events.NewBreaker(kafka, breakerThreshold, breakerCooldown))
		log.Infow("publishing census events to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	if cfg.RedisURL != "" {
		redis, err := events.NewRedisSink(ctx, cfg.RedisURL, cfg.RedisStream, redisMaxLen)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("cannot create redis sink: %w", err)
		}
		closers = append(closers, func() {
			if err := redis.Close(); err != nil {
				log.Warnw("cannot close redis sink", "error", err.Error())
			}
		})
		multi.Add(events.NewBreaker(redis, breakerThreshold, breakerCooldown))
		log.Infow("publishing census events to redis", "stream", cfg.RedisStream)
	}
	return multi, closeAll, nil
}
