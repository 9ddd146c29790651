//go:build tools

// Package tools documents development tool dependencies.
// These tools are run through `go run` with a pinned version and are not
// tracked in go.mod since they are development tools, not runtime dependencies.
package tools

// Development tools:
//
// mockgen - gomock generator for the port mocks in internal/mocks
//   Run: go generate ./internal/mocks
//   Version: go.uber.org/mock/mockgen@v0.6.0
