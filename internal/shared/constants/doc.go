// Package constants centralizes defaults shared by the CLI, the API server and
// the storage layer: file permissions, the results directory layout and the
// scan timeouts.
package constants
