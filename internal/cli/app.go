package cli

import (
	"context"

	"github.com/Sternrassler/artic-catalog-client/internal/config"
	"github.com/Sternrassler/artic-catalog-client/pkg/catalog"
	"github.com/Sternrassler/artic-catalog-client/pkg/client"
	"github.com/Sternrassler/artic-catalog-client/pkg/logging"
	"github.com/Sternrassler/artic-catalog-client/pkg/pagination"
	"github.com/redis/go-redis/v9"
)

// app wires the shared client stack for one command.
type app struct {
	redis   *redis.Client
	client  *client.Client
	catalog *catalog.Service
	batch   *pagination.BatchFetcher
}

// newApp connects to Redis when configured and builds the catalog service.
// An unreachable Redis is logged and the app runs without cache.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	logger := logging.NewLogger("cli")
	a := &app{}

	opts, err := cfg.RedisOptions()
	if err != nil {
		return nil, err
	}
	if opts != nil {
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", opts.Addr).Msg("Redis unavailable - continuing without cache")
			rdb.Close()
		} else {
			logger.Debug().Str("addr", opts.Addr).Int("db", opts.DB).Msg("Connected to Redis")
			a.redis = rdb
		}
	}

	c, err := client.New(cfg.ClientConfig(a.redis))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.client = c
	a.catalog = catalog.NewService(c)
	a.batch = pagination.NewBatchFetcher(a.catalog, pagination.DefaultConfig())
	return a, nil
}

// Close releases the HTTP client and Redis connection.
func (a *app) Close() {
	if a.client != nil {
		a.client.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}
