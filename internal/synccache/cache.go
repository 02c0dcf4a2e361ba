// Package synccache is the process-local fingerprint cache the watch
// pipeline consults before emitting a remote upsert: an upsert is
// suppressed when the new fingerprint equals the one already cached for
// that entity's natural key.
package synccache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
)

// Cache is a mutex-guarded map from natural key to content fingerprint. It
// is owned exclusively by the daemon supervisor's main goroutine per
// spec §5 (no lock would in fact be required under that single-owner
// discipline, but the mutex costs nothing and protects against a future
// caller forgetting that rule).
type Cache struct {
	mu   sync.Mutex
	data map[string]string
}

// New returns an empty cache. On restart the first upsert for every key is
// unconditional, matching spec §4.E.
func New() *Cache {
	return &Cache{data: make(map[string]string)}
}

// Fingerprint computes a stable hash of v's normalized JSON encoding.
// encoding/json already renders map keys in sorted order and struct fields
// in declaration order, so two calls with equal values always produce equal
// output.
func Fingerprint(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Changed reports whether fingerprint differs from the cached value for
// key. It does not update the cache: callers must call Confirm once the
// corresponding upsert has actually succeeded, so that a transient upsert
// failure leaves the old fingerprint in place and the entity is retried on
// the next sync pass rather than silently suppressed (spec §7).
func (c *Cache) Changed(key, fingerprint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.data[key]
	return !ok || existing != fingerprint
}

// Confirm records fingerprint as the last-synced value for key. Callers
// invoke this only after the remote upsert it guards has returned
// successfully.
func (c *Cache) Confirm(key, fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = fingerprint
}

// Delete removes a single key, e.g. when its owning file is gone.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// ClearSiblings drops every cached key under prefix that is not present in
// liveKeys. Callers invoke this once per scan of a directory's siblings, so
// that an entity whose file disappeared does not leave its fingerprint
// cached forever (spec §4.E).
func (c *Cache) ClearSiblings(prefix string, liveKeys []string) {
	live := make(map[string]struct{}, len(liveKeys))
	for _, k := range liveKeys {
		live[k] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.data {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if _, ok := live[key]; !ok {
			delete(c.data, key)
		}
	}
}

// Len returns the number of cached keys, for tests and diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
