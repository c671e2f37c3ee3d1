package modules

import (
	"context"

	"go.uber.org/zap"

	"prompthub.io/prompthub/internal/api/handlers"
	"prompthub.io/prompthub/internal/domain"
	"prompthub.io/prompthub/internal/metrics"
	"prompthub.io/prompthub/internal/pkg/logger"
	"prompthub.io/prompthub/internal/service"
)

// TemplatesModule wires the TemplateService and its event handlers.
type TemplatesModule struct {
	templates *service.TemplateService
	infra     *Infrastructure
}

// NewTemplatesModule creates the template module.
func NewTemplatesModule(infra *Infrastructure) *TemplatesModule {
	cfg := infra.Config
	infra.Dispatcher.Register(logTemplateEvent,
		domain.EventTemplateCreated,
		domain.EventTemplateUpdated,
		domain.EventTemplateDeleted,
		domain.EventTemplateDeletionRequested,
	)

	svc := service.NewTemplateService(infra.Store, service.Options{
		Branch:                cfg.Store.Branch,
		MetadataPath:          cfg.Store.MetadataPath,
		DefaultActor:          cfg.Templates.DefaultActor,
		TimestampOffset:       cfg.Templates.TimestampOffset,
		OptimisticConcurrency: cfg.Templates.OptimisticConcurrency,
		DeleteRequireApproval: cfg.Templates.DeleteRequireApproval,
		Pool:                  infra.Pool,
		Dispatcher:            infra.Dispatcher,
	})
	return &TemplatesModule{templates: svc, infra: infra}
}

func (m *TemplatesModule) Name() string { return "templates" }

func (m *TemplatesModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	if deps == nil {
		return
	}
	deps.Templates = m.templates
	deps.Store = m.infra.Store
	deps.Branch = m.infra.Config.Store.Branch
}

func (m *TemplatesModule) Shutdown(context.Context) error { return nil }

func logTemplateEvent(_ context.Context, event *domain.DomainEvent) error {
	metrics.RecordTemplateEvent(string(event.EventType))
	logger.Info("Template changed",
		zap.String("event_id", event.EventID),
		zap.String("event_type", string(event.EventType)),
		zap.String("template_id", event.TemplateID),
		zap.String("path", event.Path),
		zap.String("revision", event.Revision),
		zap.String("actor", event.Actor),
	)
	return nil
}
