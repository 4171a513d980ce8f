package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/codemarshall/pkg/apperror"
	"github.com/mesh-intelligence/codemarshall/pkg/types"
)

const selectUser = "SELECT id, username, created_at FROM users"

// CreateUser validates the username and inserts a user. A taken username
// surfaces as ErrDuplicate from the unique constraint.
func (b *Backend) CreateUser(ctx context.Context, username string) (*types.User, error) {
	u, err := types.NewUser(username)
	if err != nil {
		return nil, err
	}
	// Postgres keeps microseconds; truncate so both backends round-trip alike.
	u.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	err = b.unitOfWork(ctx, "create_user", func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			b.q("INSERT INTO users (username, created_at) VALUES (?, ?) RETURNING id"),
			u.Username, u.CreatedAt,
		).Scan(&u.ID)
		if isUniqueViolation(err) {
			return apperror.Duplicate("User", "username", u.Username)
		}
		if err != nil {
			return fmt.Errorf("inserting user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser returns the user with the given username.
func (b *Backend) GetUser(ctx context.Context, username string) (*types.User, error) {
	var u *types.User
	err := b.unitOfWork(ctx, "get_user", func(tx *sql.Tx) error {
		var err error
		u, err = b.userByName(ctx, tx, username)
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListUsers returns every user in ascending ID order.
func (b *Backend) ListUsers(ctx context.Context) ([]*types.User, error) {
	users := []*types.User{}
	err := b.unitOfWork(ctx, "list_users", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, selectUser+" ORDER BY id")
		if err != nil {
			return fmt.Errorf("listing users: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var u types.User
			if err := rows.Scan(&u.ID, &u.Username, &u.CreatedAt); err != nil {
				return fmt.Errorf("scanning user: %w", err)
			}
			users = append(users, &u)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating users: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// userByName looks a user up inside an open transaction.
func (b *Backend) userByName(ctx context.Context, tx *sql.Tx, username string) (*types.User, error) {
	var u types.User
	err := tx.QueryRowContext(ctx, b.q(selectUser+" WHERE username = ?"), username).
		Scan(&u.ID, &u.Username, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("User", "username", username)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", username, err)
	}
	return &u, nil
}
