// Package config loads and validates service configuration.
//
// Configuration comes from a YAML file, with zero values filled by
// ApplyDefaults and GHSERV_* environment variables taking final precedence.
// A fsnotify-based Watcher supports hot reload: on file change the new
// configuration is loaded and validated, and only swapped in if valid.
//
// Handlers never mutate configuration; request-scoped values such as the
// public host live in their own request context instead.
package config
