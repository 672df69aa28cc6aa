// Package shard maps repository ids onto a fanned-out directory layout so
// no single directory accumulates an unbounded number of entries.
package shard

import "path/filepath"

// Path returns the sharded filesystem path for id under root. Long ids
// split into two two-character levels plus the remainder; ids too short to
// shard sit closer to the root.
func Path(root, id string) string {
	switch {
	case len(id) <= 1:
		return filepath.Join(root, id)
	case len(id) <= 3:
		return filepath.Join(root, id[:2], id[2:])
	default:
		return filepath.Join(root, id[:2], id[2:4], id[4:])
	}
}
