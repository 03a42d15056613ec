// Package fingerprint derives stable content digests used as cache keys.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Digest returns the hex digest of the canonical JSON serialization of
// content. Object keys serialize in sorted order at every depth, so equal
// content digests identically regardless of construction order. Sequence
// order is preserved and significant.
func Digest(content map[string]any) (string, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("fingerprint: serialize content: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
