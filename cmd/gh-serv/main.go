// gh-serv is a multi-tenant git hosting service.
//
// It provisions repositories from zip archives or by cloning existing
// ones, shards them on disk, derives per-repository manager keys from a
// process-wide secret and serves the git smart HTTP transport alongside a
// small management API.
//
// Usage:
//
//	# Start the server
//	gh-serv run --config /etc/gh-serv/config.yaml
//
//	# Derive the manager key for a repository
//	gh-serv keygen --config config.yaml <repo-id>
//
//	# Show version information
//	gh-serv version
package main

func main() {
	Execute()
}
