// Package health reports process health over HTTP: 503 when resident
// memory exceeds the configured ceiling, 507 when the repository root is
// not writable, 200 otherwise.
package health
