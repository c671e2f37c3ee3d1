package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("PORT", "")
	t.Setenv("STORE_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	require.True(t, cfg.Server.AllowCredentials)
	require.False(t, cfg.Server.UnsafeAllowAllOrigins)

	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)

	require.Equal(t, DriverBitbucket, cfg.Store.Driver)
	require.Equal(t, "main", cfg.Store.Branch)
	require.Equal(t, "metadata.json", cfg.Store.MetadataPath)
	require.Equal(t, "https://api.bitbucket.org/2.0", cfg.Bitbucket.APIURL)

	require.Equal(t, "System", cfg.Templates.DefaultActor)
	require.Equal(t, 8*time.Hour, cfg.Templates.TimestampOffset)
	require.True(t, cfg.Templates.OptimisticConcurrency)
	require.True(t, cfg.Templates.DeleteRequireApproval)

	require.Equal(t, 8, cfg.Worker.DiscoveryPoolSize)
}

func TestLoad_LegacyEnvNames(t *testing.T) {
	t.Setenv("PORT", "4000")
	t.Setenv("BITBUCKET_WORKSPACE", "acme")
	t.Setenv("BITBUCKET_REPO", "prompts")
	t.Setenv("BITBUCKET_ACCESS_TOKEN", "tok")
	t.Setenv("BITBUCKET_DELETE_APPROVAL", "false")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 4000, cfg.Server.Port)
	require.Equal(t, "acme", cfg.Bitbucket.Workspace)
	require.Equal(t, "prompts", cfg.Bitbucket.RepoSlug)
	require.Equal(t, "tok", cfg.Bitbucket.AccessToken)
	require.False(t, cfg.Templates.DeleteRequireApproval)
	require.Empty(t, cfg.MissingStoreSettings())
}

func TestLoad_ServerCORSFlagsFromEnv(t *testing.T) {
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://example.com")
	t.Setenv("SERVER_ALLOW_CREDENTIALS", "false")
	t.Setenv("SERVER_UNSAFE_ALLOW_ALL_ORIGINS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, []string{"https://example.com"}, cfg.Server.AllowedOrigins)
	require.False(t, cfg.Server.AllowCredentials)
	require.True(t, cfg.Server.UnsafeAllowAllOrigins)
}

func TestLoad_MissingCredentialsIsNotFatal(t *testing.T) {
	t.Setenv("BITBUCKET_WORKSPACE", "")
	t.Setenv("BITBUCKET_ACCESS_TOKEN", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Contains(t, cfg.MissingStoreSettings(), "bitbucket.workspace")
	require.Contains(t, cfg.MissingStoreSettings(), "bitbucket.access_token")
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080},
			Store:  StoreConfig{Driver: DriverMemory, MetadataPath: "metadata.json"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"memory ok", func(*Config) {}, false},
		{"unknown driver", func(c *Config) { c.Store.Driver = "s3" }, true},
		{"gitrepo without dir", func(c *Config) { c.Store.Driver = DriverGitRepo }, true},
		{"gitrepo with dir", func(c *Config) {
			c.Store.Driver = DriverGitRepo
			c.GitRepo.Dir = "/tmp/prompts"
		}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"empty metadata path", func(c *Config) { c.Store.MetadataPath = " " }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestBitbucketConfig_HasCredentials(t *testing.T) {
	require.False(t, BitbucketConfig{}.HasCredentials())
	require.True(t, BitbucketConfig{AccessToken: "t"}.HasCredentials())
	require.False(t, BitbucketConfig{Username: "u"}.HasCredentials())
	require.True(t, BitbucketConfig{Username: "u", AppPassword: "p"}.HasCredentials())
}
