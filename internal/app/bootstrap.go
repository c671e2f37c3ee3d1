// Package app is the composition root. Bootstrap stays orchestration-only.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"prompthub.io/prompthub/internal/api/handlers"
	"prompthub.io/prompthub/internal/app/modules"
	"prompthub.io/prompthub/internal/config"
)

// Application holds composed application dependencies.
type Application struct {
	Config  *config.Config
	Router  *gin.Engine
	Infra   *modules.Infrastructure
	Modules []modules.Module
}

// Bootstrap initializes all dependencies using module-oriented manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	infra, err := modules.NewInfrastructure(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init infrastructure: %w", err)
	}

	allModules := []modules.Module{
		modules.NewTemplatesModule(infra),
	}
	server := handlers.NewServer(modules.NewServerDeps(allModules))

	return &Application{
		Config:  cfg,
		Router:  newRouter(cfg, server),
		Infra:   infra,
		Modules: allModules,
	}, nil
}
