package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/adrianmross/geo-tree/pkg/geo"
	"github.com/adrianmross/geo-tree/pkg/query"
)

// Config represents the persisted state for geo-tree.
type Config struct {
	Options         Options    `yaml:"options"`
	Bookmarks       []Bookmark `yaml:"bookmarks"`
	CurrentBookmark string     `yaml:"current_bookmark"`
}

// Options holds global settings.
type Options struct {
	Endpoint       string `yaml:"endpoint"`
	Token          string `yaml:"token,omitempty"`
	CitiesPageSize int    `yaml:"cities_page_size"`
	Timeout        string `yaml:"timeout,omitempty"`
	SocketPath     string `yaml:"socket_path"`
	CacheAddr      string `yaml:"cache_addr,omitempty"`
	CachePassword  string `yaml:"cache_password,omitempty"`
	CacheDB        int    `yaml:"cache_db,omitempty"`
	CacheTTL       string `yaml:"cache_ttl,omitempty"`
	MetricsAddr    string `yaml:"metrics_addr,omitempty"`
}

// Bookmark is a named selection, stored as its query string.
type Bookmark struct {
	Name  string `yaml:"name" json:"name"`
	Query string `yaml:"query" json:"query"`
	Notes string `yaml:"notes" json:"notes"`
}

var (
	ErrBookmarkNotFound = errors.New("bookmark not found")
	ErrDuplicateName    = errors.New("bookmark name already exists")
)

const (
	DefaultEndpoint       = "http://localhost:4000/graphql"
	DefaultCitiesPageSize = 30
	DefaultTimeout        = 15 * time.Second
)

// Environment variables that override the file.
const (
	EnvEndpoint  = "GEOTREE_ENDPOINT"
	EnvToken     = "GEOTREE_TOKEN"
	EnvCacheAddr = "GEOTREE_CACHE_ADDR"
	EnvCachePass = "GEOTREE_CACHE_PASS"
	EnvPageSize  = "GEOTREE_CITIES_PAGE_SIZE"
)

// DefaultConfig returns the initial config.
func DefaultConfig(home string) Config {
	return Config{
		Options: Options{
			Endpoint:       DefaultEndpoint,
			CitiesPageSize: DefaultCitiesPageSize,
			Timeout:        DefaultTimeout.String(),
			SocketPath:     filepath.Join(home, ".geo-tree", "daemon.sock"),
		},
		Bookmarks:       []Bookmark{},
		CurrentBookmark: "",
	}
}

// EnsureDefaultConfig creates a default config file if it does not exist.
func EnsureDefaultConfig(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return nil // already exists
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	return Save(path, DefaultConfig(home))
}

// Load reads config with a file lock for safety.
func Load(path string) (Config, error) {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return Config{}, err
	}
	defer lock.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes config with a file lock.
func Save(path string, cfg Config) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ApplyEnv overrides options from the environment. Values already loaded
// from a .env file count as environment.
func (c *Config) ApplyEnv() {
	c.Options = c.Options.WithEnv()
}

// WithEnv returns a copy of o with environment overrides applied. Callers
// that save the config afterwards should keep the original.
func (o Options) WithEnv() Options {
	if v := os.Getenv(EnvEndpoint); v != "" {
		o.Endpoint = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		o.Token = v
	}
	if v := os.Getenv(EnvCacheAddr); v != "" {
		o.CacheAddr = v
	}
	if v := os.Getenv(EnvCachePass); v != "" {
		o.CachePassword = v
	}
	if v := os.Getenv(EnvPageSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			o.CitiesPageSize = n
		}
	}
	return o
}

// PageSize returns the cities page size, falling back to the default.
func (o Options) PageSize() int {
	if o.CitiesPageSize <= 0 {
		return DefaultCitiesPageSize
	}
	return o.CitiesPageSize
}

// TimeoutDuration parses Timeout. Empty or invalid values give the default.
func (o Options) TimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(o.Timeout); err == nil && d > 0 {
		return d
	}
	return DefaultTimeout
}

// CacheTTLDuration parses CacheTTL. Zero means the cache default applies.
func (o Options) CacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(o.CacheTTL)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// GetBookmark finds a bookmark by name.
func (c Config) GetBookmark(name string) (Bookmark, error) {
	for _, b := range c.Bookmarks {
		if b.Name == name {
			return b, nil
		}
	}
	return Bookmark{}, ErrBookmarkNotFound
}

// UpsertBookmark adds or updates a bookmark.
func (c *Config) UpsertBookmark(b Bookmark) error {
	for i, existing := range c.Bookmarks {
		if existing.Name == b.Name {
			c.Bookmarks[i] = b
			return nil
		}
	}
	c.Bookmarks = append(c.Bookmarks, b)
	if c.CurrentBookmark == "" {
		c.CurrentBookmark = b.Name
	}
	return nil
}

// AddBookmark inserts b and fails if the name is taken.
func (c *Config) AddBookmark(b Bookmark) error {
	if _, err := c.GetBookmark(b.Name); err == nil {
		return fmt.Errorf("%s: %w", b.Name, ErrDuplicateName)
	}
	return c.UpsertBookmark(b)
}

// DeleteBookmark removes a bookmark by name.
func (c *Config) DeleteBookmark(name string) error {
	idx := -1
	for i, b := range c.Bookmarks {
		if b.Name == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrBookmarkNotFound
	}
	c.Bookmarks = append(c.Bookmarks[:idx], c.Bookmarks[idx+1:]...)
	if c.CurrentBookmark == name {
		c.CurrentBookmark = ""
	}
	return nil
}

// Params parses the bookmark query.
func (b Bookmark) Params() (query.Params, error) {
	return query.Parse(b.Query)
}

// Validate minimal required fields.
func (b Bookmark) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("bookmark name is required")
	}
	p, err := b.Params()
	if err != nil {
		return fmt.Errorf("bookmark %s: %w", b.Name, err)
	}
	if p.Region == "" {
		return fmt.Errorf("bookmark %s: region is required", b.Name)
	}
	if !geo.IsRegion(p.Region) {
		return fmt.Errorf("bookmark %s: unknown region %q", b.Name, p.Region)
	}
	return nil
}

// Env renders b as KEY=value lines for a shell. Unset levels are left out.
func (b Bookmark) Env() ([]string, error) {
	p, err := b.Params()
	if err != nil {
		return nil, err
	}
	lines := []string{fmt.Sprintf("GEOTREE_BOOKMARK=%s", b.Name)}
	for l := geo.Regions; l <= geo.Cities; l++ {
		if v := p.Get(l); v != "" {
			lines = append(lines, fmt.Sprintf("GEOTREE_%s=%q", strings.ToUpper(l.Param()), geo.ValidateName(v)))
		}
	}
	lines = append(lines, fmt.Sprintf("GEOTREE_QUERY=%q", p.Encode()))
	return lines, nil
}
