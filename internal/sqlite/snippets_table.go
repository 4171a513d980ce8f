package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/codemarshall/pkg/apperror"
	"github.com/mesh-intelligence/codemarshall/pkg/types"
)

// selectSnippet hydrates a snippet together with its collection and owner.
const selectSnippet = `SELECT s.id, s.title, s.description, s.language, s.code,
       c.id, c.name, u.id, u.username, u.created_at
FROM snippets s
INNER JOIN collections c ON c.id = s.collection_id
INNER JOIN users u ON u.id = s.user_id`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// CreateSnippet validates the input, resolves the owner and the collection
// (creating the collection on first use), and inserts the snippet, all in
// one transaction.
func (b *Backend) CreateSnippet(ctx context.Context, in types.NewSnippetInput) (*types.Snippet, error) {
	// Check every text field before touching the database.
	s, err := types.NewSnippet(in.Title, in.Description, in.Language, in.Code,
		&types.Collection{Name: in.CollectionName}, &types.User{Username: in.Username})
	if err != nil {
		return nil, err
	}
	if _, err := types.NewCollection(in.CollectionName); err != nil {
		return nil, err
	}

	err = b.unitOfWork(ctx, "create_snippet", func(tx *sql.Tx) error {
		user, err := b.userByName(ctx, tx, in.Username)
		if err != nil {
			return err
		}
		collection, err := b.collectionByName(ctx, tx, in.CollectionName)
		if err != nil {
			return err
		}
		s.User = user
		s.Collection = collection

		err = tx.QueryRowContext(ctx, b.q(`INSERT INTO snippets
    (title, description, language, code, collection_id, user_id)
VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
			s.Title, nullString(s.Description), s.Language, s.Code, collection.ID, user.ID,
		).Scan(&s.ID)
		if err != nil {
			return fmt.Errorf("inserting snippet: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetSnippet retrieves a snippet by ID with its collection and owner resolved.
func (b *Backend) GetSnippet(ctx context.Context, id int64) (*types.Snippet, error) {
	var s *types.Snippet
	err := b.unitOfWork(ctx, "get_snippet", func(tx *sql.Tx) error {
		var err error
		s, err = b.snippetByID(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateSnippet applies the supplied fields to an existing snippet. A field
// that fails validation rejects the whole update.
func (b *Backend) UpdateSnippet(ctx context.Context, id int64, update types.SnippetUpdate) (*types.Snippet, error) {
	var s *types.Snippet
	err := b.unitOfWork(ctx, "update_snippet", func(tx *sql.Tx) error {
		var err error
		s, err = b.snippetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if update.Empty() {
			return nil
		}
		if err := s.Apply(update); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			b.q("UPDATE snippets SET title = ?, description = ?, language = ?, code = ? WHERE id = ?"),
			s.Title, nullString(s.Description), s.Language, s.Code, id,
		)
		if err != nil {
			return fmt.Errorf("updating snippet %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// DeleteSnippet removes a snippet. Its collection and owner are kept.
func (b *Backend) DeleteSnippet(ctx context.Context, id int64) error {
	return b.unitOfWork(ctx, "delete_snippet", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, b.q("DELETE FROM snippets WHERE id = ?"), id)
		if err != nil {
			return fmt.Errorf("deleting snippet %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking deleted rows: %w", err)
		}
		if n == 0 {
			return apperror.NotFound("Snippet", "ID", id)
		}
		return nil
	})
}

// SearchSnippets returns the snippets matching every non-empty filter field,
// in ascending ID order. Values that match nothing yield an empty slice.
func (b *Backend) SearchSnippets(ctx context.Context, filter types.SnippetFilter) ([]*types.Snippet, error) {
	query := selectSnippet
	var conditions []string
	var args []any

	if filter.Language != "" {
		conditions = append(conditions, "s.language = ?")
		args = append(args, filter.Language)
	}
	if filter.CollectionName != "" {
		conditions = append(conditions, "c.name = ?")
		args = append(args, filter.CollectionName)
	}
	if filter.Username != "" {
		conditions = append(conditions, "u.username = ?")
		args = append(args, filter.Username)
	}
	if len(conditions) > 0 {
		query += "\nWHERE " + strings.Join(conditions, " AND ")
	}
	query += "\nORDER BY s.id"

	snippets := []*types.Snippet{}
	err := b.unitOfWork(ctx, "search_snippets", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, b.q(query), args...)
		if err != nil {
			return fmt.Errorf("searching snippets: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			s, err := scanSnippet(rows)
			if err != nil {
				return fmt.Errorf("hydrating snippet: %w", err)
			}
			snippets = append(snippets, s)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating snippets: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snippets, nil
}

// ListSnippets returns every snippet in ascending ID order.
func (b *Backend) ListSnippets(ctx context.Context) ([]*types.Snippet, error) {
	return b.SearchSnippets(ctx, types.SnippetFilter{})
}

func (b *Backend) snippetByID(ctx context.Context, tx *sql.Tx, id int64) (*types.Snippet, error) {
	row := tx.QueryRowContext(ctx, b.q(selectSnippet+"\nWHERE s.id = ?"), id)
	s, err := scanSnippet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("Snippet", "ID", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting snippet %d: %w", id, err)
	}
	return s, nil
}

// scanSnippet converts one selectSnippet row into a *types.Snippet.
func scanSnippet(row rowScanner) (*types.Snippet, error) {
	var (
		s           types.Snippet
		c           types.Collection
		u           types.User
		description sql.NullString
	)
	if err := row.Scan(
		&s.ID, &s.Title, &description, &s.Language, &s.Code,
		&c.ID, &c.Name, &u.ID, &u.Username, &u.CreatedAt,
	); err != nil {
		return nil, err
	}
	s.Description = description.String
	s.Collection = &c
	s.User = &u
	return &s, nil
}

// nullString stores an empty description as NULL.
func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
