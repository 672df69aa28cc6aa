// Package githttp serves the git smart HTTP protocol for hosted
// repositories, plus the read endpoints derived from repository history
// (commit log, HEAD patch, source archive).
//
// The transport shells out to the git binary in stateless-rpc mode rather
// than reimplementing pack negotiation. Inactive repositories demand basic
// auth for every operation; anonymous access is allowed only while a
// repository is active.
package githttp
