package state

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// ComputeSessionID computes a stable session ID from the workspace root.
// This ID is used to uniquely identify session files.
func ComputeSessionID(workspace string) string {
	clean := filepath.Clean(workspace)
	hash := sha256.Sum256([]byte(clean))
	return hex.EncodeToString(hash[:])
}
