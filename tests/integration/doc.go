// Package integration runs the sessiond application against real session
// stores started with testcontainers and checks the sessions it exposes.
//
// Run with: go test -tags=integration ./tests/integration/...
package integration
