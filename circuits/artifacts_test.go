package circuits

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

var vkeyContent = []byte(`{"protocol":"groth16","curve":"bn128"}`)

func testArtifactServer(requests *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Path != "/census_vkey.json" {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, "census_vkey.json", time.Now(), bytes.NewReader(vkeyContent))
	}))
}

func TestNewArtifact(t *testing.T) {
	c := qt.New(t)
	sum := sha256.Sum256(vkeyContent)

	a, err := NewArtifact("http://localhost/vkey", "0x"+hex.EncodeToString(sum[:]))
	c.Assert(err, qt.IsNil)
	c.Assert(a.Hash, qt.DeepEquals, sum[:])
	c.Assert(a.String(), qt.Equals, hex.EncodeToString(sum[:]))

	_, err = NewArtifact("http://localhost/vkey", "zz")
	c.Assert(err, qt.ErrorMatches, "invalid artifact hash: .*")
	_, err = NewArtifact("http://localhost/vkey", "abcd")
	c.Assert(err, qt.ErrorMatches, "invalid artifact hash length 2")
}

func TestCacheFetch(t *testing.T) {
	c := qt.New(t)
	var requests atomic.Int32
	server := testArtifactServer(&requests)
	defer server.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cache, err := NewCache(filepath.Join(t.TempDir(), "artifacts"))
	c.Assert(err, qt.IsNil)
	sum := sha256.Sum256(vkeyContent)
	vkey := &Artifact{URL: server.URL + "/census_vkey.json", Hash: sum[:]}

	_, err = cache.Get(vkey.Hash)
	c.Assert(err, qt.ErrorIs, ErrNotCached)
	content, err := cache.Fetch(ctx, vkey)
	c.Assert(err, qt.IsNil)
	c.Assert(content, qt.DeepEquals, vkeyContent)
	c.Assert(requests.Load(), qt.Equals, int32(1))

	// served from the cache
	content, err = cache.Fetch(ctx, &Artifact{Hash: sum[:]})
	c.Assert(err, qt.IsNil)
	c.Assert(content, qt.DeepEquals, vkeyContent)
	c.Assert(requests.Load(), qt.Equals, int32(1))

	// a wrong hash leaves nothing behind
	wrong := sha256.Sum256([]byte("other"))
	_, err = cache.Fetch(ctx, &Artifact{URL: vkey.URL, Hash: wrong[:]})
	c.Assert(err, qt.ErrorIs, ErrHashMismatch)
	entries, err := os.ReadDir(cache.Dir())
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 1)

	_, err = cache.Fetch(ctx, &Artifact{URL: vkey.URL})
	c.Assert(err, qt.ErrorMatches, "artifact hash not provided")
	_, err = cache.Fetch(ctx, &Artifact{Hash: wrong[:]})
	c.Assert(err, qt.ErrorMatches, "artifact .* not cached and no url provided")
	_, err = cache.Fetch(ctx, &Artifact{URL: server.URL + "/missing", Hash: wrong[:]})
	c.Assert(err, qt.ErrorMatches, ".*http status 404")
}

func TestCacheTampered(t *testing.T) {
	c := qt.New(t)
	cache, err := NewCache(t.TempDir())
	c.Assert(err, qt.IsNil)

	hash, err := cache.Put(vkeyContent)
	c.Assert(err, qt.IsNil)
	content, err := cache.Get(hash)
	c.Assert(err, qt.IsNil)
	c.Assert(content, qt.DeepEquals, vkeyContent)

	path := filepath.Join(cache.Dir(), hex.EncodeToString(hash))
	c.Assert(os.WriteFile(path, []byte("tampered"), 0o644), qt.IsNil)
	_, err = cache.Get(hash)
	c.Assert(err, qt.ErrorIs, ErrHashMismatch)
}
