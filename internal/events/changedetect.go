package events

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

// timestamp-ish keys that change on every read-model rebuild without
// the underlying data changing. Stripped before hashing.
var volatileKeys = map[string]bool{
	"timestamp":          true,
	"last_check":         true,
	"triggered_by_event": true,
}

// HashCache shares last-seen payload hashes between processes. The
// redis adapter satisfies it; a nil cache keeps detection in-process.
type HashCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ChangeDetector suppresses read-model updates whose payload is
// identical to the previous emission for the same update type.
type ChangeDetector struct {
	mu    sync.Mutex
	seen  map[string]string
	cache HashCache
	ttl   time.Duration
}

// NewChangeDetector creates a detector. cache may be nil.
func NewChangeDetector(cache HashCache) *ChangeDetector {
	return &ChangeDetector{
		seen:  make(map[string]string),
		cache: cache,
		ttl:   24 * time.Hour,
	}
}

// Changed reports whether payload differs from the last one seen for
// updateType, and records it as the new baseline when it does.
func (d *ChangeDetector) Changed(ctx context.Context, updateType string, payload []byte) bool {
	hash := payloadHash(payload)

	d.mu.Lock()
	last, ok := d.seen[updateType]
	if ok && last == hash {
		d.mu.Unlock()
		return false
	}
	d.seen[updateType] = hash
	d.mu.Unlock()

	if d.cache != nil {
		key := "sentinel:changedetect:" + updateType
		if !ok {
			// First sighting in this process: defer to the shared cache
			// so a restart does not re-emit an unchanged payload.
			var cached string
			if err := d.cache.Get(ctx, key, &cached); err == nil && cached == hash {
				return false
			}
		}
		_ = d.cache.Set(ctx, key, hash, d.ttl)
	}
	return true
}

// payloadHash hashes the payload with volatile top-level keys stripped.
// Unmarshal/marshal through a map gives key-sorted canonical JSON.
func payloadHash(payload []byte) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err == nil {
		for key := range volatileKeys {
			delete(obj, key)
		}
		if canonical, err := json.Marshal(obj); err == nil {
			payload = canonical
		}
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
