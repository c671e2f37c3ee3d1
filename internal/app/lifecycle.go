package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"prompthub.io/prompthub/internal/pkg/logger"
)

const startupProbeTimeout = 10 * time.Second

// Start checks that the file store answers. A failing store is logged,
// not fatal, so the process still serves health probes.
func (a *Application) Start(ctx context.Context) error {
	if a.Infra == nil || a.Infra.Store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, startupProbeTimeout)
	defer cancel()

	branch := a.Config.Store.Branch
	head, err := a.Infra.Store.Head(ctx, branch)
	if err != nil {
		logger.Warn("File store is not reachable", zap.String("branch", branch), zap.Error(err))
		return nil
	}
	logger.Info("File store reachable", zap.String("branch", branch), zap.String("head", head))
	return nil
}

// Shutdown gracefully shuts down all application components.
func (a *Application) Shutdown() {
	shutdownCtx := context.Background()

	for _, mod := range a.Modules {
		if mod == nil {
			continue
		}
		if err := mod.Shutdown(shutdownCtx); err != nil {
			logger.Warn("module shutdown returned error",
				zap.String("module", mod.Name()),
				zap.Error(err),
			)
		}
	}

	a.Infra.Close()
}
