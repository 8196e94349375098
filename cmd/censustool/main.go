// Command censustool holds the operator and client utilities of the census:
// key generation, circuit setup, identity creation and admin tokens.
package main

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/vocdoni/zk-census/api"
	"github.com/vocdoni/zk-census/circuits/census"
	"github.com/vocdoni/zk-census/crypto/groth16"
	"github.com/vocdoni/zk-census/identity"
	"github.com/vocdoni/zk-census/log"
	"github.com/vocdoni/zk-census/types"
	"github.com/vocdoni/zk-census/util"
)

const usage = `usage: censustool <command> [flags]

commands:
  keygen    generate an ed25519 key pair (admin, issuer or trusted signer)
  setup     compile the census circuit and write its keys
  identity  generate a census identity and its commitment
  token     mint an admin token
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(command string, args []string, out io.Writer) error {
	switch command {
	case "keygen":
		return keygen(out)
	case "setup":
		return setup(args, out)
	case "identity":
		return newIdentity(out)
	case "token":
		return token(args, out)
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Key is the output of keygen.
type Key struct {
	PrivateKey types.HexBytes `json:"privateKey"`
	Identity   types.Identity `json:"identity"`
}

func keygen(out io.Writer) error {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return err
	}
	id, err := types.IdentityFromPublicKey(pub)
	if err != nil {
		return err
	}
	return writeJSON(out, &Key{PrivateKey: types.HexBytes(priv.Seed()), Identity: id})
}

// IdentityOutput is the output of identity.
type IdentityOutput struct {
	*identity.Identity
	Commitment types.Hash `json:"commitment"`
}

func newIdentity(out io.Writer) error {
	id, err := identity.New()
	if err != nil {
		return err
	}
	return writeJSON(out, &IdentityOutput{Identity: id, Commitment: id.Commitment()})
}

// Artifact describes a file written by setup.
type Artifact struct {
	Path string         `json:"path"`
	Hash types.HexBytes `json:"sha256"`
}

func setup(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	dir := fs.String("out", ".", "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := os.MkdirAll(*dir, 0o755); err != nil {
		return err
	}
	log.Infow("compiling census circuit and running the setup", "depth", types.TreeDepth)
	start := time.Now()
	keys, err := census.Setup()
	if err != nil {
		return err
	}
	log.Infow("census setup done", "took", time.Since(start).String(), "constraints", keys.CS.GetNbConstraints())

	files := map[string]*os.File{}
	for _, name := range []string{"census.ccs", "census.pk", "census.vk"} {
		f, err := os.Create(filepath.Join(*dir, name))
		if err != nil {
			return err
		}
		defer f.Close()
		files[name] = f
	}
	if err := keys.WriteTo(files["census.ccs"], files["census.pk"], files["census.vk"]); err != nil {
		return err
	}
	vk, err := groth16.FromGnarkVerifyingKey(keys.VerifyingKey)
	if err != nil {
		return err
	}
	snarkJS, err := vk.MarshalSnarkJS()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(*dir, "census_vkey.json"), snarkJS, 0o644); err != nil {
		return err
	}

	artifacts := []*Artifact{}
	for _, name := range []string{"census.ccs", "census.pk", "census.vk", "census_vkey.json"} {
		path := filepath.Join(*dir, name)
		if f, ok := files[name]; ok {
			if err := f.Sync(); err != nil {
				return err
			}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		hash := sha256.Sum256(data)
		artifacts = append(artifacts, &Artifact{Path: path, Hash: hash[:]})
	}
	return writeJSON(out, artifacts)
}

func token(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	key := fs.String("key", "", "hex ed25519 admin key")
	ttl := fs.Duration("ttl", time.Hour, "token validity")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key == "" {
		return fmt.Errorf("--key is required")
	}
	priv, err := util.ParsePrivateKey(*key)
	if err != nil {
		return err
	}
	t, err := api.NewAdminToken(priv, *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, t)
	return err
}
