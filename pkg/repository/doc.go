// Package repository provides the stateless in-memory handle to one
// on-disk bare git repository.
//
// The filesystem is the single source of truth: existence, the active flag,
// the size cap and disk usage are re-derived from disk on every access.
// Concurrent writers to the same repository are not mutually excluded; the
// filesystem's own atomicity for file create/remove is the only guard, and
// last writer wins.
package repository
