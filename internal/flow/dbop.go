package flow

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/exg1o/telegram-bots-hub/internal/designer"
)

// handleDatabaseOperation creates or updates records in the bot's
// record store. A node carrying neither operation contributes nothing.
func (w *Walker) handleDatabaseOperation(ctx context.Context, id int64, vars *Variables) ([]designer.Connection, error) {
	operation, err := w.api.DatabaseOperation(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case operation.CreateOperation != nil:
		data, err := ExpandData(ctx, operation.CreateOperation.Data, vars, true)
		if err != nil {
			return nil, err
		}
		if _, err := w.api.CreateDatabaseRecord(ctx, data); err != nil {
			return nil, err
		}

	case operation.UpdateOperation != nil:
		update := operation.UpdateOperation

		var data, lookupValue any
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			data, err = ExpandData(gctx, update.NewData, vars, true)
			return err
		})
		g.Go(func() error {
			var err error
			lookupValue, err = ExpandValue(gctx, update.LookupFieldValue, vars, true)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		encoded, err := json.Marshal(lookupValue)
		if err != nil {
			return nil, fmt.Errorf("encode lookup value: %w", err)
		}
		search := fmt.Sprintf(`"%s": %s`, update.LookupFieldName, encoded)

		records, err := w.api.UpdateDatabaseRecords(ctx, data, update.Overwrite, search)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 && update.CreateIfNotFound {
			if _, err := w.api.CreateDatabaseRecord(ctx, data); err != nil {
				return nil, err
			}
		}

	default:
		return nil, nil
	}

	return operation.SourceConnections, nil
}
