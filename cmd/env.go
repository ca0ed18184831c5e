package main

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/yourschools/ingest-cli/internal/fetcher"
	"github.com/yourschools/ingest-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "ingest.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// newFetchClient builds the shared HTTP client every adapter and the
// enrichment engine go through.
func newFetchClient() *fetcher.HTTPFetcher {
	limiters := fetcher.DefaultRateLimiters()
	if r := cfg.Fetch.HostRatePerSec; r > 0 {
		for host := range limiters {
			limiters[host] = rate.NewLimiter(rate.Limit(r), r)
		}
	}

	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    cfg.Fetch.UserAgent,
		Timeout:      cfg.Fetch.Timeout(),
		MaxRetries:   cfg.Fetch.MaxRetries,
		RetryDelay:   cfg.Fetch.RetryDelay(),
		RateLimiters: limiters,
	})
}
