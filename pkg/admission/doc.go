// Package admission implements the server-side push validation that runs
// inside every git push transaction.
//
// The checks execute in a fixed order, short-circuiting on first failure:
//
//  1. non-deletion: the post-image hash must not be all zeros
//  2. size cap: total disk usage must not exceed the repository's max_size
//  3. read-only paths: no changed path may match a manifest pattern
//
// The package is consumed by the cmd/pre-receive binary, which git invokes
// as the repository's pre-receive hook with the working directory set to
// the bare repository. It has no network access to the service: policy is
// re-derived from the repository-local max_size and hackerrank.json files.
// Exit code 0 accepts the push; anything else rejects it, with all
// diagnostic output relayed to the pusher's terminal.
package admission
