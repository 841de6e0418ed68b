package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeLaunchID computes a deterministic launch_id using SHA256.
// Formula: SHA256(source_url|tx_hash)
// Returns hex-encoded hash (64 characters).
func ComputeLaunchID(sourceURL, txHash string) string {
	data := fmt.Sprintf("%s|%s", sourceURL, txHash)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
