package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/codemarshall/pkg/types"
)

// ListCollections returns every collection in ascending ID order.
func (b *Backend) ListCollections(ctx context.Context) ([]*types.Collection, error) {
	collections := []*types.Collection{}
	err := b.unitOfWork(ctx, "list_collections", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, "SELECT id, name FROM collections ORDER BY id")
		if err != nil {
			return fmt.Errorf("listing collections: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var c types.Collection
			if err := rows.Scan(&c.ID, &c.Name); err != nil {
				return fmt.Errorf("scanning collection: %w", err)
			}
			collections = append(collections, &c)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating collections: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return collections, nil
}

// collectionByName returns the collection called name, creating it first if
// it does not exist. The insert is a no-op on conflict so concurrent callers
// converge on one row.
func (b *Backend) collectionByName(ctx context.Context, tx *sql.Tx, name string) (*types.Collection, error) {
	c, err := types.NewCollection(name)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		b.q("INSERT INTO collections (name) VALUES (?) ON CONFLICT (name) DO NOTHING"),
		c.Name,
	); err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", c.Name, err)
	}
	if err := tx.QueryRowContext(ctx,
		b.q("SELECT id FROM collections WHERE name = ?"), c.Name,
	).Scan(&c.ID); err != nil {
		return nil, fmt.Errorf("getting collection %s: %w", c.Name, err)
	}
	return c, nil
}
