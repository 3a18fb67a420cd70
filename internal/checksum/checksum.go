// Package checksum derives content fingerprints used as HTTP entity tags.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of content.
func Sum(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

// Match reports whether etag names content. Surrounding quotes, as sent in
// If-Match headers, are ignored.
func Match(etag, content string) bool {
	if n := len(etag); n >= 2 && etag[0] == '"' && etag[n-1] == '"' {
		etag = etag[1 : n-1]
	}
	return etag == Sum(content)
}
