package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adrianmross/geo-tree/internal/logger"
	"github.com/adrianmross/geo-tree/pkg/browser"
	"github.com/adrianmross/geo-tree/pkg/config"
	"github.com/adrianmross/geo-tree/pkg/geoapi"
)

// resolveConfigPath returns the config path based on flags and project discovery.
// Priority:
//  1. explicit --config
//  2. if global flag set -> ~/.geo-tree/config.yml
//  3. project-local configs (in order):
//     ./.geo-tree.yml, ./.geo-tree.json,
//     ./.geo-tree/config.yml, ./.geo-tree/config.json,
//     ./geo-tree.yml, ./geo-tree.json,
//     ./geo-tree/config.yml, ./geo-tree/config.json
//  4. fallback to ~/.geo-tree/config.yml
func resolveConfigPath(cfg string, global bool) (string, error) {
	if cfg != "" {
		return cfg, nil
	}

	if global {
		return globalConfigPath()
	}

	if wd, err := os.Getwd(); err == nil {
		candidates := []string{
			".geo-tree.yml",
			".geo-tree.json",
			filepath.Join(".geo-tree", "config.yml"),
			filepath.Join(".geo-tree", "config.json"),
			"geo-tree.yml",
			"geo-tree.json",
			filepath.Join("geo-tree", "config.yml"),
			filepath.Join("geo-tree", "config.json"),
		}
		for _, rel := range candidates {
			p := filepath.Join(wd, rel)
			if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
				return p, nil
			}
		}
	}

	return globalConfigPath()
}

func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".geo-tree", "config.yml"), nil
}

// loadConfig resolves the config path for cmd and loads it. Environment
// overrides are applied later by newBrowser so they never get saved.
func loadConfig(cmd *cobra.Command, cfgPath string) (string, config.Config, error) {
	useGlobal, err := cmd.Flags().GetBool("global")
	if err != nil {
		return "", config.Config{}, err
	}
	path, err := resolveConfigPath(cfgPath, useGlobal)
	if err != nil {
		return "", config.Config{}, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return "", config.Config{}, err
	}
	return path, cfg, nil
}

// newFetcher is a seam so commands can be tested without a GraphQL server.
// Without cache_addr responses are cached in process. The returned func
// releases the cache connection, if any.
var newFetcher = func(opts config.Options) (browser.Fetcher, func(), error) {
	clientOpts := []geoapi.Option{
		geoapi.WithTimeout(opts.TimeoutDuration()),
	}
	if opts.Token != "" {
		clientOpts = append(clientOpts, geoapi.WithToken(opts.Token))
	}
	closeFn := func() {}
	if rdb := geoapi.OpenRedis(opts.CacheAddr, opts.CachePassword, opts.CacheDB); rdb != nil {
		cache := geoapi.NewRedisCache(rdb)
		clientOpts = append(clientOpts, geoapi.WithCache(cache, opts.CacheTTLDuration()))
		closeFn = func() { _ = cache.Close() }
		logger.L().Debug("cache_enabled", "addr", opts.CacheAddr)
	} else {
		clientOpts = append(clientOpts, geoapi.WithCache(geoapi.NewMemoryCache(), opts.CacheTTLDuration()))
	}
	return geoapi.New(opts.Endpoint, clientOpts...), closeFn, nil
}

// newBrowser builds a Browser over the configured endpoint.
func newBrowser(opts config.Options) (*browser.Browser, func(), error) {
	opts = opts.WithEnv()
	f, closeFn, err := newFetcher(opts)
	if err != nil {
		return nil, nil, err
	}
	b := browser.New(f, browser.Options{CitiesPageSize: opts.PageSize()})
	return b, func() {
		b.Close()
		closeFn()
	}, nil
}
