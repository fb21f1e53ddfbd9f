package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache stores opaque byte payloads with a TTL
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from ordered parts (e.g. namespace, model, payload)
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return "kgcurator:v1:" + hex.EncodeToString(hash[:])
}
