// Package maintenance runs the scheduled sweeper that cleans up shard
// directories left behind by failed provisioning attempts.
package maintenance
