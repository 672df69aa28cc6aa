// Package provision builds new bare repositories, either from a zipped
// source tree or by cloning an existing repository.
//
// Both pipelines end the same way: the push-admission hook is linked in as
// hooks/pre-receive, receive.denyDeletes is set on the bare repository and
// the size cap is persisted. Pipelines are not atomic; callers may only
// rely on the repository existing after a successful return, and failed
// attempts can leave partial directories for the maintenance sweeper.
package provision
