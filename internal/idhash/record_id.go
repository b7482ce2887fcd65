package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeRecordID computes a deterministic record_id using SHA256.
// Formula: SHA256(signal_id|symbol|started_at_ms)
// Returns hex-encoded hash (64 characters).
//
// The record id is stable across restarts and across archive mirrors:
// the same resolved signal always yields the same id, which lets the
// Postgres and ClickHouse stores reject accidental re-inserts.
func ComputeRecordID(signalID, symbol string, startedAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", signalID, symbol, startedAtMs)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
