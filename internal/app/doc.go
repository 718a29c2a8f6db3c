// Package app loads configuration from the environment and wires the
// dependency graph for the relay daemon.
package app
