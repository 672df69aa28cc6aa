// Package audit records repository lifecycle and push events in a local
// SQLite database for later inspection.
package audit
