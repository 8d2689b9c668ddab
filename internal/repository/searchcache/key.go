// Package searchcache stores finished search results for replay within a TTL window.
package searchcache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/dishola/dishola/internal/domain"
)

var keyPrefix = domain.KeyPrefix + "search:"

// Key hashes normalized request parts into a cache key.
func Key(parts []string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return keyPrefix + hex.EncodeToString(h[:])
}
