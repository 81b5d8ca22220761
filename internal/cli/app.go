package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/probitylabs/probity/internal/config"
	"github.com/probitylabs/probity/pkg/artifact"
	"github.com/probitylabs/probity/pkg/cache"
	"github.com/probitylabs/probity/pkg/check"
	"github.com/probitylabs/probity/pkg/index"
)

// app bundles the wired-up components every command needs: the resolved
// configuration, the index client with its response cache, and the
// artifact store.
type app struct {
	cfg     config.Config
	root    string // resolved cache root
	catalog *index.Client
	store   *artifact.Store
	resp    cache.Cache
}

// newApp loads the configuration and builds the component graph. The
// artifact store lives under <cache>/artifacts and index responses
// under <cache>/index, so clearing one never touches the other.
func newApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	root := cfg.ResolveCacheDir()
	store, err := artifact.NewStore(filepath.Join(root, "artifacts"), nil)
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}

	resp, err := newResponseCache(ctx, cfg, root)
	if err != nil {
		return nil, fmt.Errorf("open response cache: %w", err)
	}

	logger := loggerFromContext(ctx)
	catalog := index.NewClient(index.Options{
		IndexURL:     cfg.ResolveIndexURL(),
		JSONIndexURL: cfg.JSONIndexURL,
		Cache:        resp,
		CacheTTL:     time.Duration(cfg.CacheTTL),
		Logf:         func(format string, args ...any) { logger.Warnf(format, args...) },
	})

	return &app{cfg: cfg, root: root, catalog: catalog, store: store, resp: resp}, nil
}

func newResponseCache(ctx context.Context, cfg config.Config, root string) (cache.Cache, error) {
	switch cfg.ResponseCache {
	case "", "file":
		return cache.NewFileCache(filepath.Join(root, "index"))
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	case "none":
		return cache.NewNullCache(), nil
	default:
		return nil, fmt.Errorf("unknown response_cache backend %q", cfg.ResponseCache)
	}
}

func (a *app) close() {
	_ = a.resp.Close()
}

// selectReleases resolves a selector argument against the index:
// latest, exact version, or every version for a wildcard.
func (a *app) selectReleases(ctx context.Context, arg string, fresh bool) ([]*index.Release, error) {
	sel, err := index.ParseSelector(arg)
	if err != nil {
		return nil, err
	}
	pkg, err := a.catalog.Package(ctx, sel.Name, true, fresh)
	if err != nil {
		return nil, err
	}
	return pkg.Select(sel, a.cfg.SkipYanked)
}

func (a *app) checker() *check.Checker {
	return &check.Checker{
		Catalog:     a.catalog,
		Store:       a.store,
		SkipYanked:  a.cfg.SkipYanked,
		Parallelism: a.cfg.Parallelism,
	}
}
