package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/harborlight-fund/grantflow/internal/store"
)

// openStore builds the configured store backend. Callers own Close.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
