package auth

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
)

// ManagerKey derives the per-repository manager secret from the repository
// id and the process-wide manager secret. The derivation is deterministic:
// the same (id, secret) pair always yields the same 40-character hex string,
// so keys never need to be stored.
func ManagerKey(repoID, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(repoID))
	return hex.EncodeToString(mac.Sum(nil))
}
