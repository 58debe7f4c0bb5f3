package authzspec

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// loadWorkers caps the parse fan-out of LoadAll.
const loadWorkers = 16

// LoadAll parses every authorization file in paths concurrently and returns
// the models in the same order. The first parse failure cancels the
// remaining work.
func LoadAll(ctx context.Context, paths []string) ([]*Model, error) {
	start := time.Now()

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(loadWorkers)

	models := make([]*Model, len(paths))
	for i, path := range paths {
		i, path := i, path
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			model, err := LoadFile(path)
			if err != nil {
				return fmt.Errorf("load %s: %w", path, err)
			}
			models[i] = model
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("authz load", "files", len(paths), "took", time.Since(start))
	return models, nil
}
