package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// JoinKey builds prefix:part1:part2. Empty parts are skipped.
func JoinKey(prefix string, parts ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

// HashKey turns an arbitrary identifier into a fixed-width, separator-free
// key segment (first 16 bytes of SHA-256, hex).
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16])
}
