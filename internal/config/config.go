// Package config provides configuration management for prompthub.
//
// Configuration is loaded from:
// 1. .env file in the working directory (optional)
// 2. config.yaml file (optional)
// 3. Environment variables (SERVER_PORT, BITBUCKET_WORKSPACE, ...)
// 4. Default values
//
// Import Path: prompthub.io/prompthub/internal/config
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Store drivers.
const (
	DriverBitbucket = "bitbucket"
	DriverGitRepo   = "gitrepo"
	DriverMemory    = "memory"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Bitbucket BitbucketConfig `mapstructure:"bitbucket"`
	GitRepo   GitRepoConfig   `mapstructure:"gitrepo"`
	Templates TemplatesConfig `mapstructure:"templates"`
	Security  SecurityConfig  `mapstructure:"security"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port                  int           `mapstructure:"port"`
	ReadTimeout           time.Duration `mapstructure:"read_timeout"`
	WriteTimeout          time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout       time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins        []string      `mapstructure:"allowed_origins"`
	AllowCredentials      bool          `mapstructure:"allow_credentials"`
	UnsafeAllowAllOrigins bool          `mapstructure:"unsafe_allow_all_origins"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// StoreConfig selects and tunes the Remote File Store backend.
type StoreConfig struct {
	Driver       string        `mapstructure:"driver"`
	Branch       string        `mapstructure:"branch"`
	MetadataPath string        `mapstructure:"metadata_path"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// BitbucketConfig contains the hosting provider REST API settings.
// AccessToken is preferred; Username/AppPassword is the deprecated scheme.
type BitbucketConfig struct {
	APIURL            string  `mapstructure:"api_url"`
	Workspace         string  `mapstructure:"workspace"`
	RepoSlug          string  `mapstructure:"repo_slug"`
	AccessToken       string  `mapstructure:"access_token"`
	Username          string  `mapstructure:"username"`
	AppPassword       string  `mapstructure:"app_password"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// HasCredentials reports whether any usable credential is configured.
func (c BitbucketConfig) HasCredentials() bool {
	return c.AccessToken != "" || (c.Username != "" && c.AppPassword != "")
}

// GitRepoConfig configures the local go-git backed store.
type GitRepoConfig struct {
	Dir         string `mapstructure:"dir"`
	AuthorName  string `mapstructure:"author_name"`
	AuthorEmail string `mapstructure:"author_email"`
}

// TemplatesConfig contains template catalogue behaviour switches.
type TemplatesConfig struct {
	DefaultActor          string        `mapstructure:"default_actor"`
	TimestampOffset       time.Duration `mapstructure:"timestamp_offset"`
	OptimisticConcurrency bool          `mapstructure:"optimistic_concurrency"`
	DeleteRequireApproval bool          `mapstructure:"delete_require_approval"`
}

// SecurityConfig contains inbound authentication settings.
// An empty JWTSigningKey disables bearer authentication.
type SecurityConfig struct {
	JWTSigningKey string `mapstructure:"jwt_signing_key"`
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	DiscoveryPoolSize int `mapstructure:"discovery_pool_size"`
}

var (
	bootstrapLoggerOnce sync.Once
	bootstrapLogger     *zap.Logger
)

// Load reads configuration from .env, file and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/prompthub")

	// Maps nested config: bitbucket.repo_slug -> BITBUCKET_REPO_SLUG
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	cfg.warnMissingStoreSettings()
	return &cfg, nil
}

// Validate checks for critical configuration errors.
// Missing Bitbucket credentials are not an error; see MissingStoreSettings.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverBitbucket, DriverMemory:
	case DriverGitRepo:
		if strings.TrimSpace(c.GitRepo.Dir) == "" {
			return fmt.Errorf("gitrepo.dir must be set when store.driver is %q", DriverGitRepo)
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if strings.TrimSpace(c.Store.MetadataPath) == "" {
		return fmt.Errorf("store.metadata_path must not be empty")
	}
	return nil
}

// MissingStoreSettings lists the Bitbucket settings that are absent.
// Only meaningful for the bitbucket driver.
func (c *Config) MissingStoreSettings() []string {
	if c.Store.Driver != DriverBitbucket {
		return nil
	}
	var missing []string
	if c.Bitbucket.Workspace == "" {
		missing = append(missing, "bitbucket.workspace")
	}
	if c.Bitbucket.RepoSlug == "" {
		missing = append(missing, "bitbucket.repo_slug")
	}
	if !c.Bitbucket.HasCredentials() {
		missing = append(missing, "bitbucket.access_token")
	}
	return missing
}

func (c *Config) warnMissingStoreSettings() {
	missing := c.MissingStoreSettings()
	if len(missing) == 0 {
		return
	}
	logBootstrapWarn(
		"remote store is not fully configured; template requests will fail until it is",
		zap.Strings("missing", missing),
	)
	if c.Bitbucket.AccessToken == "" && c.Bitbucket.AppPassword != "" {
		logBootstrapWarn("bitbucket username/app_password authentication is deprecated; set BITBUCKET_ACCESS_TOKEN")
	}
}

func logBootstrapWarn(msg string, fields ...zap.Field) {
	bootstrapLoggerOnce.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)

		l, err := cfg.Build()
		if err != nil {
			bootstrapLogger = zap.NewNop()
			return
		}
		bootstrapLogger = l
	})

	bootstrapLogger.Warn(msg, fields...)
}

// bindLegacyEnv keeps the environment names used by earlier deployments.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"server.port":                       {"SERVER_PORT", "PORT"},
		"bitbucket.repo_slug":               {"BITBUCKET_REPO_SLUG", "BITBUCKET_REPO"},
		"templates.delete_require_approval": {"TEMPLATES_DELETE_REQUIRE_APPROVAL", "BITBUCKET_DELETE_APPROVAL"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return err
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.allow_credentials", true)
	v.SetDefault("server.unsafe_allow_all_origins", false)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Store
	v.SetDefault("store.driver", DriverBitbucket)
	v.SetDefault("store.branch", "main")
	v.SetDefault("store.metadata_path", "metadata.json")
	v.SetDefault("store.timeout", "30s")

	// Bitbucket
	v.SetDefault("bitbucket.api_url", "https://api.bitbucket.org/2.0")
	v.SetDefault("bitbucket.workspace", "")
	v.SetDefault("bitbucket.repo_slug", "")
	v.SetDefault("bitbucket.access_token", "")
	v.SetDefault("bitbucket.username", "")
	v.SetDefault("bitbucket.app_password", "")
	v.SetDefault("bitbucket.requests_per_second", 10)
	v.SetDefault("bitbucket.burst", 5)

	// Local git repository
	v.SetDefault("gitrepo.dir", "")
	v.SetDefault("gitrepo.author_name", "prompthub")
	v.SetDefault("gitrepo.author_email", "prompthub@localhost")

	// Templates
	v.SetDefault("templates.default_actor", "System")
	v.SetDefault("templates.timestamp_offset", "8h")
	v.SetDefault("templates.optimistic_concurrency", true)
	v.SetDefault("templates.delete_require_approval", true)

	// Security
	v.SetDefault("security.jwt_signing_key", "")

	// Worker pool
	v.SetDefault("worker.discovery_pool_size", 8)
}
