package main

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/vocdoni/zk-census/log"
	"github.com/vocdoni/zk-census/types"
	"github.com/vocdoni/zk-census/util"
)

// envPrefix is prepended to the upper-cased flag name, with dots replaced by
// underscores, to get the environment variable overriding a flag.
const envPrefix = "CENSUS_"

type config struct {
	DataDir      string
	Host         string
	Port         int
	LogLevel     string
	LogOutput    string
	LogErrorFile string

	VKey     string
	VKeyURL  string
	VKeyHash string

	TrustedSigners []string
	IssuerKey      string
	Admin          string
	AdminKey       string

	ScopeRotation         bool
	ScopeRotationInterval time.Duration

	KafkaBrokers []string
	KafkaTopic   string
	RedisURL     string
	RedisStream  string
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "zk-census")
	}
	return filepath.Join(home, ".zk-census")
}

// parseConfig parses the command line flags, then applies the environment
// overrides for the flags not set in the command line.
func parseConfig(args []string) (*config, error) {
	cfg := &config{}
	fs := flag.NewFlagSet("censusd", flag.ContinueOnError)
	fs.StringVar(&cfg.DataDir, "datadir", defaultDataDir(), "data directory")
	fs.StringVar(&cfg.Host, "host", "0.0.0.0", "API listen host")
	fs.IntVar(&cfg.Port, "port", 8080, "API listen port")
	fs.StringVar(&cfg.LogLevel, "log.level", log.LogLevelInfo, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogOutput, "log.output", "stdout", "log output (stdout, stderr or a file path)")
	fs.StringVar(&cfg.LogErrorFile, "log.errorFile", "", "file where warnings and errors are also written")
	fs.StringVar(&cfg.VKey, "vkey", "", "census verification key file (gnark binary or snarkjs JSON)")
	fs.StringVar(&cfg.VKeyURL, "vkey.url", "", "URL to download the census verification key from")
	fs.StringVar(&cfg.VKeyHash, "vkey.hash", "", "hex SHA-256 of the verification key at vkey.url")
	fs.StringSliceVar(&cfg.TrustedSigners, "trustedSigners", nil, "hex ed25519 public keys of the trusted attestation signers")
	fs.StringVar(&cfg.IssuerKey, "issuerKey", "", "hex ed25519 key to sign attestations, enables the attestation issuer")
	fs.StringVar(&cfg.Admin, "admin", "", "hex ed25519 public key of the only identity allowed to initialize the census (defaults to the adminKey identity)")
	fs.StringVar(&cfg.AdminKey, "adminKey", "", "hex ed25519 admin key, used by the scope rotator")
	fs.BoolVar(&cfg.ScopeRotation, "scopeRotation", false, "advance the scope when its duration has elapsed (requires adminKey)")
	fs.DurationVar(&cfg.ScopeRotationInterval, "scopeRotation.interval", time.Minute, "interval between scope expiration checks")
	fs.StringSliceVar(&cfg.KafkaBrokers, "events.kafka", nil, "Kafka seed brokers to publish census events to")
	fs.StringVar(&cfg.KafkaTopic, "events.kafkaTopic", "census-events", "Kafka topic for census events")
	fs.StringVar(&cfg.RedisURL, "events.redis", "", "Redis URL to publish census events to")
	fs.StringVar(&cfg.RedisStream, "events.redisStream", "census-events", "Redis stream for census events")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := applyEnv(fs); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv sets the flags not given in the command line from their
// environment variables.
func applyEnv(fs *flag.FlagSet) error {
	var err error
	replacer := strings.NewReplacer(".", "_", "-", "_")
	fs.VisitAll(func(f *flag.Flag) {
		if err != nil || f.Changed {
			return
		}
		name := envPrefix + strings.ToUpper(replacer.Replace(f.Name))
		if v, ok := os.LookupEnv(name); ok {
			if setErr := fs.Set(f.Name, v); setErr != nil {
				err = fmt.Errorf("invalid value for %s: %w", name, setErr)
			}
		}
	})
	return err
}

func (cfg *config) validate() error {
	if log.FormatLevel(cfg.LogLevel) == "" {
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	cfg.LogLevel = log.FormatLevel(cfg.LogLevel)
	if cfg.VKey == "" && cfg.VKeyURL == "" {
		return fmt.Errorf("a verification key is required, set vkey or vkey.url")
	}
	if cfg.VKeyURL != "" && cfg.VKeyHash == "" {
		return fmt.Errorf("vkey.url requires vkey.hash")
	}
	if cfg.ScopeRotation && cfg.AdminKey == "" {
		return fmt.Errorf("scopeRotation requires adminKey")
	}
	return nil
}

// adminIdentity returns the identity allowed to initialize the census: the
// admin flag, or the identity of adminKey. It is zero when neither is set.
func (cfg *config) adminIdentity() (types.Identity, error) {
	var fromKey types.Identity
	if cfg.AdminKey != "" {
		key, err := util.ParsePrivateKey(cfg.AdminKey)
		if err != nil {
			return types.Identity{}, fmt.Errorf("invalid admin key: %w", err)
		}
		if fromKey, err = types.IdentityFromPublicKey(key.Public().(ed25519.PublicKey)); err != nil {
			return types.Identity{}, err
		}
	}
	if cfg.Admin == "" {
		return fromKey, nil
	}
	admin, err := types.IdentityFromHex(cfg.Admin)
	if err != nil {
		return types.Identity{}, fmt.Errorf("invalid admin: %w", err)
	}
	if !fromKey.IsZero() && fromKey != admin {
		return types.Identity{}, fmt.Errorf("adminKey does not match admin %s", admin)
	}
	return admin, nil
}
