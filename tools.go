//go:build tools
// +build tools

// Package tools pins go generate tooling (mockgen) as a module dependency.
package toggle_rooms

import (
	_ "go.uber.org/mock/mockgen"
)
