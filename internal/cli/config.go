package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/tracelane/pkg/layout"
	"github.com/matzehuels/tracelane/pkg/viewer"
)

// configFile is looked up in the working directory.
const configFile = appName + ".toml"

var errNoGraph = errors.New("no graph given: pass --graph, --server or set [server] graph in the config")

// Config is the tracelane.toml file.
//
//	[viewer]
//	lane_width = 300
//	debounce = "50ms"
//
//	[layout]
//	long_distance_top = 50
//
//	[server]
//	listen = ":7420"
//	graph = "build/pdg.json"
//	cache = "redis"
//	redis_url = "redis://localhost:6379/0"
type Config struct {
	Viewer viewer.Config `toml:"viewer"`
	Layout *layout.Bands `toml:"layout"`
	Server ServerConfig  `toml:"server"`

	// Path is the file the config was read from, empty for defaults.
	Path string `toml:"-"`
}

// ServerConfig configures the backend, in-process or served.
type ServerConfig struct {
	Listen string `toml:"listen"`
	Graph  string `toml:"graph"`

	// SourceRoot resolves relative file names in the graph. Defaults to the
	// directory of the graph file.
	SourceRoot string `toml:"source_root"`
	// Editor is the command run by "show in editor", with {file} and {line}.
	Editor string `toml:"editor"`
	// Values selects value translation: auto, uint or none.
	Values       string `toml:"values"`
	LongDistance int    `toml:"long_distance"`

	// Cache is none, file or redis.
	Cache    string        `toml:"cache"`
	CacheDir string        `toml:"cache_dir"`
	RedisURL string        `toml:"redis_url"`
	CacheTTL time.Duration `toml:"cache_ttl"`

	Watch       bool          `toml:"watch"`
	ReloadDelay time.Duration `toml:"reload_delay"`
}

// Cache backends.
const (
	cacheNone  = "none"
	cacheFile  = "file"
	cacheRedis = "redis"
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Viewer: viewer.DefaultConfig(),
		Server: ServerConfig{
			Listen:   ":7420",
			Values:   "auto",
			Cache:    cacheNone,
			CacheTTL: time.Hour,
			Watch:    true,
		},
	}
}

// configCandidates lists the files LoadConfig tries, in order.
func configCandidates(explicit string) []string {
	if explicit != "" {
		return []string{explicit}
	}
	out := []string{configFile}
	if dir, err := configDir(); err == nil {
		out = append(out, filepath.Join(dir, "config.toml"))
	}
	return out
}

// LoadConfig reads the first config file found: explicit, then
// ./tracelane.toml, then $XDG_CONFIG_HOME/tracelane/config.toml. An explicit
// path must exist; the others are optional.
func LoadConfig(explicit string) (*Config, error) {
	cfg := DefaultConfig()
	for _, path := range configCandidates(explicit) {
		if _, err := os.Stat(path); err != nil {
			if explicit != "" {
				return nil, fmt.Errorf("config: %w", err)
			}
			continue
		}
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
		break
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", cfg.source(), err)
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	c.Path = path
	return nil
}

func (c *Config) source() string {
	if c.Path == "" {
		return "defaults"
	}
	return c.Path
}

// SetDefaults fills unset values. A [layout] section replaces the viewer's
// bands as a whole, with unset bands taken from the defaults.
func (c *Config) SetDefaults() {
	if c.Layout != nil {
		b := *c.Layout
		d := layout.DefaultBands()
		if b.LaneMargin == 0 {
			b.LaneMargin = d.LaneMargin
		}
		if b.LongDistanceTop == 0 {
			b.LongDistanceTop = d.LongDistanceTop
		}
		if b.LongDistanceBottom == 0 {
			b.LongDistanceBottom = d.LongDistanceBottom
		}
		if b.OrdinaryTop == 0 {
			b.OrdinaryTop = d.OrdinaryTop
		}
		if b.BottomMargin == 0 {
			b.BottomMargin = d.BottomMargin
		}
		if b.Epsilon == 0 {
			b.Epsilon = d.Epsilon
		}
		c.Viewer.Bands = b
	}
	c.Viewer.SetDefaults()
	if c.Server.Listen == "" {
		c.Server.Listen = ":7420"
	}
	if c.Server.Values == "" {
		c.Server.Values = "auto"
	}
	if c.Server.Cache == "" {
		c.Server.Cache = cacheNone
	}
}

// Validate checks the configuration after SetDefaults.
func (c *Config) Validate() error {
	if err := c.Viewer.Validate(); err != nil {
		return err
	}
	switch strings.ToLower(c.Server.Values) {
	case "auto", "uint", "none", "raw":
	default:
		return fmt.Errorf("server.values: unknown translation %q", c.Server.Values)
	}
	switch c.Server.Cache {
	case cacheNone, cacheFile:
	case cacheRedis:
		if c.Server.RedisURL == "" {
			return fmt.Errorf("server.cache = redis needs server.redis_url")
		}
	default:
		return fmt.Errorf("server.cache: unknown backend %q (want none, file or redis)", c.Server.Cache)
	}
	if c.Server.CacheTTL < 0 {
		return fmt.Errorf("server.cache_ttl must not be negative")
	}
	return nil
}
