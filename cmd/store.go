package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/floodrisk/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	if cfg.Store.Disabled {
		return nil, eris.New("run history is disabled (store.disabled)")
	}

	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// optionalStore is initStore for commands that still work without history.
func optionalStore(ctx context.Context) (store.Store, error) {
	if cfg.Store.Disabled {
		return nil, nil
	}
	return initStore(ctx)
}
