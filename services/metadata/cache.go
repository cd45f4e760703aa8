package metadata

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/mozillazg/go-unidecode"
	"github.com/spf13/afero"
)

// fileCache stores JSON-encoded provider responses on a filesystem with a
// TTL. Production uses the OS filesystem; tests pass an in-memory fs.
type fileCache struct {
	fs  afero.Fs
	dir string
	ttl time.Duration
}

type cacheEnvelope struct {
	StoredAt time.Time       `json:"storedAt"`
	Payload  json.RawMessage `json:"payload"`
}

func newFileCache(fs afero.Fs, dir string, ttl time.Duration) *fileCache {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		log.Printf("[metadata] warning: failed to create cache dir %s: %v", dir, err)
	}
	return &fileCache{fs: fs, dir: dir, ttl: ttl}
}

// cacheKey builds a stable filename from the request parts. Queries are
// ASCII-folded first so "Amélie" and "Amelie" share an entry.
func cacheKey(parts ...string) string {
	joined := strings.ToLower(unidecode.Unidecode(strings.Join(parts, "|")))
	sum := sha1.Sum([]byte(joined))
	return hex.EncodeToString(sum[:]) + ".json"
}

// get loads a cached payload into v. Returns false on miss, expiry, or any
// read error; a broken cache entry is never fatal.
func (c *fileCache) get(key string, v any) bool {
	if c == nil {
		return false
	}
	data, err := afero.ReadFile(c.fs, c.path(key))
	if err != nil {
		return false
	}

	var envelope cacheEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return false
	}
	if time.Since(envelope.StoredAt) > c.ttl {
		return false
	}
	return json.Unmarshal(envelope.Payload, v) == nil
}

// set stores a payload under key. Failures are logged and ignored.
func (c *fileCache) set(key string, v any) {
	if c == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	data, err := json.Marshal(cacheEnvelope{StoredAt: time.Now().UTC(), Payload: payload})
	if err != nil {
		return
	}
	if err := afero.WriteFile(c.fs, c.path(key), data, 0o644); err != nil {
		log.Printf("[metadata] warning: failed to write cache entry: %v", err)
	}
}

// clear removes the whole cache directory.
func (c *fileCache) clear() error {
	if err := c.fs.RemoveAll(c.dir); err != nil {
		return err
	}
	return c.fs.MkdirAll(c.dir, 0o755)
}

func (c *fileCache) path(key string) string {
	return c.dir + "/" + key
}
