package modules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"prompthub.io/prompthub/internal/config"
	"prompthub.io/prompthub/internal/domain"
	"prompthub.io/prompthub/internal/filestore"
	"prompthub.io/prompthub/internal/pkg/logger"
)

func init() {
	_ = logger.Init("error", "json")
}

func testConfig(driver string) *config.Config {
	return &config.Config{
		Store: config.StoreConfig{
			Driver:       driver,
			Branch:       "main",
			MetadataPath: "metadata.json",
			Timeout:      time.Second,
		},
		Templates: config.TemplatesConfig{
			DefaultActor:    "System",
			TimestampOffset: 8 * time.Hour,
		},
		Worker: config.WorkerConfig{DiscoveryPoolSize: 2},
	}
}

func TestNewInfrastructure_Drivers(t *testing.T) {
	tests := []struct {
		driver  string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{driver: config.DriverMemory},
		{driver: config.DriverBitbucket},
		{driver: config.DriverGitRepo, mutate: func(c *config.Config) { c.GitRepo.Dir = t.TempDir() }},
		{driver: "s3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			cfg := testConfig(tt.driver)
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			infra, err := NewInfrastructure(context.Background(), cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer infra.Close()

			_, ok := infra.Store.(*filestore.InstrumentedStore)
			require.True(t, ok)
			require.NotNil(t, infra.Pool)
			require.NotNil(t, infra.Dispatcher)
		})
	}
}

func TestTemplatesModule_ContributesServerDeps(t *testing.T) {
	infra, err := NewInfrastructure(context.Background(), testConfig(config.DriverMemory))
	require.NoError(t, err)
	defer infra.Close()

	mod := NewTemplatesModule(infra)
	deps := NewServerDeps([]Module{mod, nil})
	require.NotNil(t, deps.Templates)
	require.Equal(t, infra.Store, deps.Store)
	require.Equal(t, "main", deps.Branch)
	require.Equal(t, "templates", mod.Name())
	require.NoError(t, mod.Shutdown(context.Background()))
}

func TestLogTemplateEvent(t *testing.T) {
	err := logTemplateEvent(context.Background(), &domain.DomainEvent{
		EventType:  domain.EventTemplateCreated,
		TemplateID: "1",
	})
	require.NoError(t, err)
}
