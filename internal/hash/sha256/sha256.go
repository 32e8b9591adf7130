// Package sha256 provides the title fingerprint used for deduplication.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the hex SHA-256 digest of a posting title. It is a
// pure function of the title: two postings with identical titles collide,
// which is exactly what makes it the dedup key.
func Fingerprint(title string) string {
	sum := sha256.Sum256([]byte(title))
	return hex.EncodeToString(sum[:])
}
