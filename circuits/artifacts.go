package circuits

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/vocdoni/zk-census/log"
	"github.com/vocdoni/zk-census/util"
)

// MaxArtifactSize bounds the size of a downloaded artifact.
const MaxArtifactSize = 1 << 30

var (
	ErrNotCached    = errors.New("artifact not cached")
	ErrHashMismatch = errors.New("artifact hash mismatch")
)

// Artifact is a remote circuit file identified by the SHA-256 hash of its
// content.
type Artifact struct {
	URL  string
	Hash []byte
}

// NewArtifact returns the artifact served at url with the given hex encoded
// SHA-256 hash.
func NewArtifact(url, hexHash string) (*Artifact, error) {
	hash, err := hex.DecodeString(util.TrimHex(hexHash))
	if err != nil {
		return nil, fmt.Errorf("invalid artifact hash: %w", err)
	}
	if len(hash) != sha256.Size {
		return nil, fmt.Errorf("invalid artifact hash length %d", len(hash))
	}
	return &Artifact{URL: url, Hash: hash}, nil
}

func (a *Artifact) String() string {
	return hex.EncodeToString(a.Hash)
}

// Cache is a directory of artifacts, each stored in a file named after the
// hex hash of its content.
type Cache struct {
	dir    string
	client *http.Client
}

// NewCache creates the cache directory if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create artifacts directory %s: %w", dir, err)
	}
	return &Cache{dir: dir, client: http.DefaultClient}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

func (c *Cache) path(hash []byte) string {
	return filepath.Join(c.dir, hex.EncodeToString(hash))
}

// Get returns the cached content for hash. A file whose content no longer
// matches its name is reported as ErrHashMismatch.
func (c *Cache) Get(hash []byte) ([]byte, error) {
	content, err := os.ReadFile(c.path(hash))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %x", ErrNotCached, hash)
	}
	if err != nil {
		return nil, err
	}
	if sum := sha256.Sum256(content); !bytes.Equal(sum[:], hash) {
		return nil, fmt.Errorf("%w: file %x has content %x", ErrHashMismatch, hash, sum)
	}
	return content, nil
}

// Put stores content under its hash and returns the hash.
func (c *Cache) Put(content []byte) ([]byte, error) {
	sum := sha256.Sum256(content)
	if err := c.store(sum[:], bytes.NewReader(content)); err != nil {
		return nil, err
	}
	return sum[:], nil
}

// Fetch returns the artifact content from the cache, downloading it first if
// it is missing.
func (c *Cache) Fetch(ctx context.Context, a *Artifact) ([]byte, error) {
	if len(a.Hash) == 0 {
		return nil, fmt.Errorf("artifact hash not provided")
	}
	content, err := c.Get(a.Hash)
	if !errors.Is(err, ErrNotCached) {
		return content, err
	}
	if a.URL == "" {
		return nil, fmt.Errorf("artifact %s not cached and no url provided", a)
	}
	log.Infow("downloading circuit artifact", "url", a.URL, "hash", a.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating the artifact request: %w", err)
	}
	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading artifact: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error downloading artifact %s: http status %d", a.URL, res.StatusCode)
	}
	if err := c.store(a.Hash, io.LimitReader(res.Body, MaxArtifactSize)); err != nil {
		return nil, err
	}
	return c.Get(a.Hash)
}

// store writes r to a temporary file in the cache directory and renames it to
// its final name only if the content hashes to hash.
func (c *Cache) store(hash []byte, r io.Reader) error {
	tmp, err := os.CreateTemp(c.dir, hex.EncodeToString(hash)+".*.partial")
	if err != nil {
		return fmt.Errorf("cannot create artifact file: %w", err)
	}
	defer os.Remove(tmp.Name())

	hasher := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, hasher), r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("cannot write artifact file: %w", err)
	}
	if sum := hasher.Sum(nil); !bytes.Equal(sum, hash) {
		return fmt.Errorf("%w: expected %x, got %x", ErrHashMismatch, hash, sum)
	}
	if err := os.Rename(tmp.Name(), c.path(hash)); err != nil {
		return fmt.Errorf("cannot store artifact: %w", err)
	}
	log.Debugw("circuit artifact stored", "hash", hex.EncodeToString(hash), "size", n)
	return nil
}
