// Package config loads and validates asset run configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/poewiki-assets/internal/asset"
	"github.com/JakeFAU/poewiki-assets/internal/wiki"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = "config.yml"

// ErrInvalid marks malformed or missing configuration. It is fatal at startup.
var ErrInvalid = errors.New("invalid configuration")

// Config captures all run configuration loaded via Viper.
type Config struct {
	// Out is the output directory; Load guarantees a trailing separator.
	Out      string         `mapstructure:"out"`
	Assets   AssetsConfig   `mapstructure:"assets"`
	Wiki     WikiConfig     `mapstructure:"wiki"`
	Renderer RendererConfig `mapstructure:"renderer"`
	Mirror   MirrorConfig   `mapstructure:"mirror"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`

	// Requests holds the nodes/items/skills lists; see requests.go.
	Requests asset.Requests `mapstructure:"-"`
}

// AssetsConfig locates the on-disk asset cache.
type AssetsConfig struct {
	Dir string `mapstructure:"dir"`
}

// WikiConfig controls how wiki pages are addressed and probed.
type WikiConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	UserAgent     string        `mapstructure:"user_agent"`
	Probe         bool          `mapstructure:"probe"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
	RespectRobots bool          `mapstructure:"respect_robots"`
}

// RendererConfig configures the headless capture subsystem.
type RendererConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxParallel int           `mapstructure:"max_parallel"`
	Timeout     time.Duration `mapstructure:"timeout"`
	DomainQPS   float64       `mapstructure:"domain_qps"`
	Width       int64         `mapstructure:"width"`
	Height      int64         `mapstructure:"height"`
}

// MirrorConfig enables copying produced files to a GCS bucket or a second
// directory. DryRun keeps the uploads in memory instead.
type MirrorConfig struct {
	GCSBucket    string `mapstructure:"gcs_bucket"`
	Dir          string `mapstructure:"dir"`
	Prefix       string `mapstructure:"prefix"`
	CacheControl string `mapstructure:"cache_control"`
	DryRun       bool   `mapstructure:"dry_run"`
}

// MetricsConfig controls Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment. An empty path reads
// DefaultPath.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetEnvPrefix("POEASSETS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("%w: read config: %v", ErrInvalid, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: unmarshal config: %v", ErrInvalid, err)
	}

	// #nosec G304 -- the config path is chosen by the operator.
	raw, err := os.ReadFile(v.ConfigFileUsed())
	if err != nil {
		return Config{}, fmt.Errorf("%w: read config: %v", ErrInvalid, err)
	}
	requests, err := ParseRequests(raw)
	if err != nil {
		return Config{}, err
	}
	cfg.Requests = requests
	cfg.Out = NormalizeOut(cfg.Out)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("out", "")
	v.SetDefault("assets.dir", "assets")
	v.SetDefault("wiki.base_url", wiki.DefaultBaseURL)
	v.SetDefault("wiki.user_agent", "poewiki-assets/1.0 (+https://github.com/JakeFAU/poewiki-assets)")
	v.SetDefault("wiki.probe", false)
	v.SetDefault("wiki.probe_timeout", "15s")
	v.SetDefault("wiki.respect_robots", true)
	v.SetDefault("renderer.enabled", true)
	v.SetDefault("renderer.max_parallel", 4)
	v.SetDefault("renderer.timeout", "0s")
	v.SetDefault("renderer.domain_qps", 0)
	v.SetDefault("renderer.width", 1280)
	v.SetDefault("renderer.height", 1024)
	v.SetDefault("mirror.gcs_bucket", "")
	v.SetDefault("mirror.dir", "")
	v.SetDefault("mirror.prefix", "")
	v.SetDefault("mirror.dry_run", false)
	v.SetDefault("mirror.cache_control", "public, max-age=3600")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// NormalizeOut appends a path separator unless out already ends in one.
func NormalizeOut(out string) string {
	if out == "" || strings.HasSuffix(out, "/") || strings.HasSuffix(out, `\`) {
		return out
	}
	return out + "/"
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Out) == "" {
		return fmt.Errorf("%w: out must be set", ErrInvalid)
	}
	if strings.TrimSpace(c.Assets.Dir) == "" {
		return fmt.Errorf("%w: assets.dir must be set", ErrInvalid)
	}
	if c.Wiki.BaseURL == "" {
		return fmt.Errorf("%w: wiki.base_url must be set", ErrInvalid)
	}
	if c.Wiki.Probe && c.Wiki.ProbeTimeout <= 0 {
		return fmt.Errorf("%w: wiki.probe_timeout must be > 0 when probing", ErrInvalid)
	}
	if c.Renderer.MaxParallel < 0 {
		return fmt.Errorf("%w: renderer.max_parallel must be >= 0", ErrInvalid)
	}
	if c.Renderer.Timeout < 0 {
		return fmt.Errorf("%w: renderer.timeout must be >= 0", ErrInvalid)
	}
	if c.Renderer.DomainQPS < 0 {
		return fmt.Errorf("%w: renderer.domain_qps must be >= 0", ErrInvalid)
	}
	if c.Renderer.Width < 0 || c.Renderer.Height < 0 {
		return fmt.Errorf("%w: renderer viewport must be >= 0", ErrInvalid)
	}
	if c.Mirror.GCSBucket != "" && c.Mirror.Dir != "" {
		return fmt.Errorf("%w: mirror.gcs_bucket and mirror.dir are mutually exclusive", ErrInvalid)
	}
	groups := []struct {
		key  string
		reqs []asset.Request
	}{{"nodes", c.Requests.Nodes}, {"skills", c.Requests.Skills}}
	for _, group := range groups {
		for i, req := range group.reqs {
			if req.Annotated() {
				return fmt.Errorf("%w: %s[%d] %q: annotations are only supported for items", ErrInvalid, group.key, i, req.Name)
			}
		}
	}
	return nil
}

// AssetDir returns the cache directory for category cat.
func (c Config) AssetDir(cat asset.Category) string {
	return filepath.Join(c.Assets.Dir, cat.Dir())
}
