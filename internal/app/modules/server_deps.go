package modules

import (
	"prompthub.io/prompthub/internal/api/handlers"
)

// NewServerDeps lets each module contribute its wiring to the HTTP server deps.
func NewServerDeps(mods []Module) handlers.ServerDeps {
	var deps handlers.ServerDeps
	for _, mod := range mods {
		if mod == nil {
			continue
		}
		mod.ContributeServerDeps(&deps)
	}
	return deps
}
