// Package idhash computes deterministic record identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeRecordID computes a deterministic ledger record_id using SHA256.
// Formula: SHA256(kind|tx_signature)
// Returns hex-encoded hash (64 characters). Deterministic so re-recording
// the same transaction maps to the same row.
func ComputeRecordID(kind, txSignature string) string {
	data := fmt.Sprintf("%s|%s", kind, txSignature)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
