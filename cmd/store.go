package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/freakspace/leadtool/internal/store"
)

// openStore validates the store settings, connects and migrates.
func openStore(ctx context.Context, command string) (store.Store, error) {
	if err := cfg.Validate(command); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
