// Package auth resolves request credentials into one of three roles:
// admin (global secret), manager (per-repository derived key) or anonymous.
//
// Manager keys are derived, never stored: hex(HMAC-SHA1(manager_secret,
// repo_id)), a stable 40-character string. Resolution is a pure predicate
// over the request and configuration; it is recomputed on every request and
// never errors on malformed credentials.
package auth
