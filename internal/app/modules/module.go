// Package modules contains the dependency modules of the composition root.
//
// Import Path: prompthub.io/prompthub/internal/app/modules
package modules

import (
	"context"

	"prompthub.io/prompthub/internal/api/handlers"
)

// Module represents a domain-specific dependency unit in the composition root.
type Module interface {
	// Name returns a stable module identifier for logging/debugging.
	Name() string

	// ContributeServerDeps injects module-owned dependencies into the HTTP server deps.
	ContributeServerDeps(*handlers.ServerDeps)

	// Shutdown performs module-local graceful cleanup.
	Shutdown(context.Context) error
}
