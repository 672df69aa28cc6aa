// Package metrics exposes Prometheus instrumentation for the HTTP surface,
// the provisioning pipelines and the git transport.
package metrics
