package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/homely-rentals/homely/pkg/cache/memory"
	"github.com/homely-rentals/homely/pkg/config"
	"github.com/homely-rentals/homely/pkg/images"
	"github.com/homely-rentals/homely/pkg/logging"
	"github.com/homely-rentals/homely/pkg/maintenance"
	"github.com/homely-rentals/homely/pkg/mcp"
	"github.com/homely-rentals/homely/pkg/metrics"
	"github.com/homely-rentals/homely/pkg/oplog"
	"github.com/homely-rentals/homely/pkg/report"
	"github.com/homely-rentals/homely/pkg/search"
	"github.com/homely-rentals/homely/pkg/server"
	"github.com/homely-rentals/homely/pkg/store"
	"github.com/homely-rentals/homely/pkg/tracker"
	"github.com/homely-rentals/homely/pkg/warmup"
)

// app holds the process-wide components. One cache and one tracker are
// shared by every surface started from the same process.
type app struct {
	cfg         *config.Config
	log         *logrus.Logger
	store       *store.Store
	slow        *oplog.Logger
	cache       *memory.Cache
	hits        *tracker.HitRate
	search      *search.Optimizer
	warmup      *warmup.Warmer
	images      *images.Optimizer
	maintenance *maintenance.Optimizer
	reporter    *report.Reporter
	metrics     *metrics.Metrics
}

func newApp(cfg *config.Config) (*app, error) {
	log := logging.New(cfg.Log)

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	slow, err := oplog.New(st.DB(), oplog.Config{
		Retention: cfg.Maintenance.LogRetention,
		Interval:  cfg.OpLog.RetentionInterval,
	}, oplog.WithLogger(log.WithField("component", "oplog")))
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init slow operation log: %w", err)
	}

	cache := memory.New(cfg.Cache.TTL)
	hits := tracker.New()

	a := &app{
		cfg:   cfg,
		log:   log,
		store: st,
		slow:  slow,
		cache: cache,
		hits:  hits,
		search: search.New(st, cache, hits, search.Config{
			MaxResults:     cfg.Search.MaxResults,
			CollapseMisses: cfg.Search.CollapseMisses,
			SlowThreshold:  cfg.Search.SlowThreshold,
		}, search.WithSlowLog(slow), search.WithLogger(log.WithField("component", "search"))),
		warmup: warmup.New(st, cache, warmup.Config{
			PopularLimit:   cfg.Warmup.PopularLimit,
			TrendingLimit:  cfg.Warmup.TrendingLimit,
			TrendingWindow: cfg.Warmup.TrendingWindow,
		}, time.Now),
		images: images.New(cfg.Images.Quality, cfg.Images.Format),
		maintenance: maintenance.New(log.WithField("component", "maintenance"),
			maintenance.Default(st, slow, maintenance.Retention{
				SearchLogs: cfg.Maintenance.SearchLogRetention,
			}, time.Now)...),
		reporter: report.New(st, slow, cache, hits, report.WithLogger(log.WithField("component", "report"))),
	}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New(cache, hits)
	}
	return a, nil
}

func (a *app) httpServer() *server.Server {
	metricsPath := ""
	if a.metrics != nil {
		metricsPath = a.cfg.Metrics.Path
	}
	return server.New(server.Config{
		Listen:      a.cfg.Listen,
		BasePath:    a.cfg.BasePath,
		MetricsPath: metricsPath,
	}, server.Deps{
		Search:      a.search,
		Warmup:      a.warmup,
		Images:      a.store,
		Variants:    a.images,
		Maintenance: a.maintenance,
		Report:      a.reporter,
		Cache:       a.cache,
		Health:      a.store,
		Metrics:     a.metrics,
		Log:         a.log,
	})
}

func (a *app) mcpServer() *mcp.Server {
	return mcp.New(mcp.Deps{
		Cache:       a.cache,
		Hits:        a.hits,
		Report:      a.reporter,
		Maintenance: a.maintenance,
		SlowLog:     a.slow,
		Log:         a.log,
	}, version)
}

func (a *app) Close() error {
	_ = a.slow.Close()
	return a.store.Close()
}
