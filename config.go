package modhost

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/golobby/config/v3"
	"github.com/golobby/config/v3/pkg/feeder"

	"github.com/GoCodeAlone/modhost/manifest"
	"github.com/GoCodeAlone/modhost/resolver"
)

// Resolution strategies accepted in CacheConfig.Strategy.
const (
	StrategyDirect = "direct"
	StrategyCached = "cached"
)

// Feeder populates a configuration struct.
type Feeder = config.Feeder

// HostConfig configures a module host.
type HostConfig struct {
	ModuleDir    string                `json:"moduleDir" yaml:"moduleDir" toml:"moduleDir" env:"MODHOST_MODULE_DIR" default:"modules" required:"true" desc:"Directory scanned for module packages"`
	DeferStart   bool                  `json:"deferStart" yaml:"deferStart" toml:"deferStart" env:"MODHOST_DEFER_START" desc:"Load modules without starting them"`
	Repositories []manifest.Repository `json:"repositories" yaml:"repositories" toml:"repositories" desc:"Default repositories; modules may add names but not override these"`
	EventTargets []string              `json:"eventTargets" yaml:"eventTargets" toml:"eventTargets" desc:"CloudEvents HTTP endpoints that receive post-transition events"`
	Cache        CacheConfig           `json:"cache" yaml:"cache" toml:"cache"`
	Fetch        FetchConfig           `json:"fetch" yaml:"fetch" toml:"fetch"`
	Watch        WatchConfig           `json:"watch" yaml:"watch" toml:"watch"`
	API          APIConfig             `json:"api" yaml:"api" toml:"api"`
}

// CacheConfig selects the dependency resolution strategy.
type CacheConfig struct {
	Strategy      string        `json:"strategy" yaml:"strategy" toml:"strategy" env:"MODHOST_RESOLVER" default:"direct" desc:"Dependency resolution strategy: direct or cached"`
	Dir           string        `json:"dir" yaml:"dir" toml:"dir" env:"MODHOST_CACHE_DIR" default:".modhost/cache" desc:"Artifact cache directory for the cached strategy"`
	PruneSchedule string        `json:"pruneSchedule" yaml:"pruneSchedule" toml:"pruneSchedule" default:"@daily" desc:"Cron schedule for pruning unused cache entries"`
	MaxAge        time.Duration `json:"maxAge" yaml:"maxAge" toml:"maxAge" default:"720h" desc:"Cache entries unused for longer than this are pruned"`
}

// FetchConfig tunes the artifact HTTP client.
type FetchConfig struct {
	UserAgent  string        `json:"userAgent" yaml:"userAgent" toml:"userAgent" env:"MODHOST_USER_AGENT" desc:"User-Agent sent with artifact requests"`
	MaxRetries int           `json:"maxRetries" yaml:"maxRetries" toml:"maxRetries" default:"5" desc:"Retries for rate-limited or failing downloads"`
	BaseDelay  time.Duration `json:"baseDelay" yaml:"baseDelay" toml:"baseDelay" default:"50ms" desc:"Initial retry delay, doubled per attempt"`
}

// WatchConfig controls hot loading from the module directory.
type WatchConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled" toml:"enabled" env:"MODHOST_WATCH" desc:"Load and unload modules as packages appear and disappear"`
	Debounce time.Duration `json:"debounce" yaml:"debounce" toml:"debounce" default:"500ms" desc:"Quiet period before directory changes are applied"`
	Ignore   []string      `json:"ignore" yaml:"ignore" toml:"ignore" desc:"Extra glob patterns ignored by the watcher"`
}

// APIConfig controls the admin HTTP API.
type APIConfig struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr" env:"MODHOST_API_ADDR" desc:"Listen address for the admin API; empty disables it"`
}

// Validate checks values that tags cannot express.
func (c *HostConfig) Validate() error {
	switch c.Cache.Strategy {
	case StrategyDirect, StrategyCached:
	default:
		return fmt.Errorf("cache.strategy must be %q or %q, got %q", StrategyDirect, StrategyCached, c.Cache.Strategy)
	}
	if c.Cache.Strategy == StrategyCached && c.Cache.Dir == "" {
		return fmt.Errorf("cache.dir is required for the %s strategy", StrategyCached)
	}
	if c.Cache.MaxAge < 0 {
		return fmt.Errorf("cache.maxAge must not be negative")
	}
	if c.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch.maxRetries must not be negative")
	}
	if c.Fetch.BaseDelay < 0 || c.Watch.Debounce < 0 {
		return fmt.Errorf("fetch.baseDelay and watch.debounce must not be negative")
	}
	for i, r := range c.Repositories {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("repositories[%d]: %w", i, err)
		}
	}
	return nil
}

// FileFeeder picks the golobby feeder for a config file by extension.
func FileFeeder(path string) (Feeder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return feeder.Json{Path: path}, nil
	case ".yaml", ".yml":
		return feeder.Yaml{Path: path}, nil
	case ".toml":
		return feeder.Toml{Path: path}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormatType, filepath.Ext(path))
	}
}

// LoadConfig reads path (optional) and then the MODHOST_* environment into a
// HostConfig, applies defaults and validates the result.
func LoadConfig(path string) (*HostConfig, error) {
	cfg := &HostConfig{}
	c := config.New()
	if path != "" {
		f, err := FileFeeder(path)
		if err != nil {
			return nil, err
		}
		c.AddFeeder(f)
	}
	c.AddFeeder(feeder.Env{}).AddStruct(cfg)
	if err := c.Feed(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigFeederError, err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultHostConfig returns a HostConfig holding only defaults.
func DefaultHostConfig() *HostConfig {
	cfg := &HostConfig{}
	if err := ProcessConfigDefaults(cfg); err != nil {
		panic(err)
	}
	return cfg
}

// NewArtifactFetcher builds the shared artifact fetcher: an HTTP client
// with retries behind per-host circuit breakers.
func (c *HostConfig) NewArtifactFetcher() resolver.ArtifactFetcher {
	var opts []resolver.Option
	if c.Fetch.UserAgent != "" {
		opts = append(opts, resolver.WithUserAgent(c.Fetch.UserAgent))
	}
	opts = append(opts,
		resolver.WithMaxRetries(c.Fetch.MaxRetries),
		resolver.WithBaseDelay(c.Fetch.BaseDelay),
	)
	return resolver.NewCircuitBreakerFetcher(resolver.NewFetcher(opts...))
}

// NewResolver builds the configured resolution strategy. The cached
// strategy also returns a janitor that prunes its store; it is nil otherwise.
func (c *HostConfig) NewResolver(fetcher resolver.ArtifactFetcher, logger Logger) (resolver.Resolver, *resolver.Janitor, error) {
	if c.Cache.Strategy != StrategyCached {
		return resolver.NewDirect(), nil, nil
	}
	store, err := resolver.NewStore(c.Cache.Dir)
	if err != nil {
		return nil, nil, err
	}
	var janitor *resolver.Janitor
	if c.Cache.MaxAge > 0 && c.Cache.PruneSchedule != "" {
		janitor, err = resolver.NewJanitor(store, c.Cache.PruneSchedule, c.Cache.MaxAge, logger)
		if err != nil {
			return nil, nil, err
		}
	}
	return resolver.NewCached(store, fetcher), janitor, nil
}

// ProviderOptions translates the configuration into provider options.
func (c *HostConfig) ProviderOptions(r resolver.Resolver, fetcher resolver.ArtifactFetcher) []ProviderOption {
	opts := []ProviderOption{
		WithModuleDir(c.ModuleDir),
		WithResolver(r),
		WithSourceFetcher(resolver.FetchBody(fetcher)),
	}
	if len(c.Repositories) > 0 {
		opts = append(opts, WithDefaultRepositories(c.Repositories...))
	}
	return opts
}

// WatcherConfig derives the directory watcher settings.
func (c *HostConfig) WatcherConfig() WatcherConfig {
	return WatcherConfig{
		Dir:       c.ModuleDir,
		Debounce:  c.Watch.Debounce,
		Ignore:    c.Watch.Ignore,
		AutoStart: !c.DeferStart,
	}
}
