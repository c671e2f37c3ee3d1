package modules

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"prompthub.io/prompthub/internal/config"
	"prompthub.io/prompthub/internal/domain"
	"prompthub.io/prompthub/internal/filestore"
	"prompthub.io/prompthub/internal/pkg/logger"
	"prompthub.io/prompthub/internal/pkg/worker"
)

// Infrastructure holds shared cross-cutting dependencies for all modules.
// It is a provider, not a Module.
type Infrastructure struct {
	Config     *config.Config
	Store      filestore.Store
	Pool       *worker.Pool
	Dispatcher *domain.EventDispatcher
}

// NewInfrastructure opens the configured file store and the discovery pool.
func NewInfrastructure(_ context.Context, cfg *config.Config) (*Infrastructure, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	store, err := newStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("init file store: %w", err)
	}

	pool, err := worker.NewPool("discovery", cfg.Worker.DiscoveryPoolSize)
	if err != nil {
		return nil, fmt.Errorf("init worker pool: %w", err)
	}

	logger.Info("File store initialized",
		zap.String("driver", cfg.Store.Driver),
		zap.String("branch", cfg.Store.Branch),
	)

	return &Infrastructure{
		Config:     cfg,
		Store:      filestore.Instrument(store, cfg.Store.Driver),
		Pool:       pool,
		Dispatcher: domain.NewEventDispatcher(),
	}, nil
}

func newStore(cfg *config.Config) (filestore.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverBitbucket:
		bb := cfg.Bitbucket
		return filestore.NewBitbucketStore(filestore.BitbucketOptions{
			APIURL:            bb.APIURL,
			Workspace:         bb.Workspace,
			RepoSlug:          bb.RepoSlug,
			AccessToken:       bb.AccessToken,
			Username:          bb.Username,
			AppPassword:       bb.AppPassword,
			Timeout:           cfg.Store.Timeout,
			RequestsPerSecond: bb.RequestsPerSecond,
			Burst:             bb.Burst,
		}), nil
	case config.DriverGitRepo:
		return filestore.NewGitRepoStore(filestore.GitRepoOptions{
			Dir:           cfg.GitRepo.Dir,
			DefaultBranch: cfg.Store.Branch,
			AuthorName:    cfg.GitRepo.AuthorName,
			AuthorEmail:   cfg.GitRepo.AuthorEmail,
		})
	case config.DriverMemory:
		return filestore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// Close releases infra resources in reverse dependency order.
func (i *Infrastructure) Close() {
	if i == nil {
		return
	}
	if i.Pool != nil {
		i.Pool.Release()
	}
}
