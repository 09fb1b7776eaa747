// Package app assembles a dataset Registry from configuration: it opens the
// configured backends, routes locator schemes to fetchers and registers the
// providers.
package app

import (
	"context"
	"net/http"

	"github.com/koustreak/datri-datasets/internal/config"
	"github.com/koustreak/datri-datasets/internal/database"
	"github.com/koustreak/datri-datasets/internal/database/mysql"
	"github.com/koustreak/datri-datasets/internal/database/postgres"
	"github.com/koustreak/datri-datasets/internal/dataset"
	"github.com/koustreak/datri-datasets/internal/fetch"
	"github.com/koustreak/datri-datasets/internal/filestore"
	"github.com/koustreak/datri-datasets/internal/filestore/minio"
	"github.com/koustreak/datri-datasets/internal/logger"
)

// App owns the registry and the backend connections behind it.
type App struct {
	Registry *dataset.Registry
	Router   *fetch.Router

	store filestore.Store
	db    database.DB
}

// New connects the configured backends and builds the registry.
// On error every backend opened so far is closed.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	log = logger.OrNop(log)
	a := &App{Router: fetch.NewRouter()}

	client := &http.Client{Timeout: cfg.HTTP.Timeout}
	var web fetch.Fetcher = fetch.NewHTTPFetcher(client, log)
	if cfg.HTTP.ChunkSize > 0 {
		web = fetch.NewChunkedFetcher(client, cfg.HTTP.ChunkSize, cfg.HTTP.ChunkConcurrency, log)
	}
	a.Router.Handle("https", web).Handle("http", web)

	if cfg.Filestore != nil {
		store, err := minio.New(ctx, cfg.Filestore)
		if err != nil {
			return nil, err
		}
		a.store = store
		a.Router.Handle("s3", fetch.NewObjectFetcher(store, log))
		log.InfoWith("object store connected", map[string]any{"endpoint": cfg.Filestore.Endpoint})
	}

	if cfg.Database != nil {
		db, err := openDB(ctx, cfg.Database)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.db = db
		a.Router.Handle("sql", fetch.NewSQLFetcher(db, cfg.Database.Driver.Dialect(), log))
		log.InfoWith("database connected", map[string]any{"driver": string(cfg.Database.Driver)})
	}

	providers, err := cfg.Providers()
	if err != nil {
		a.Close()
		return nil, err
	}
	reg, err := dataset.NewRegistry(a.Router, log, providers...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Registry = reg

	log.InfoWith("registry ready", map[string]any{
		"datasets": reg.Names(),
		"schemes":  a.Router.Schemes(),
	})
	return a, nil
}

func openDB(ctx context.Context, cfg *database.Config) (database.DB, error) {
	if cfg.Driver == database.DriverMySQL {
		return mysql.New(ctx, cfg)
	}
	return postgres.New(ctx, cfg)
}

// Close releases the backend connections.
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}
