package types

import (
	"context"
	"errors"
)

// Store is the persistence gateway. Each method runs as one unit of work:
// it commits on success and releases its transaction on every exit path.
// Failures the caller can act on are *apperror.Error values; anything else
// is a storage failure.
type Store interface {
	// CreateUser inserts a user. Returns ErrValidation for a bad username and
	// ErrDuplicate when the username is taken.
	CreateUser(ctx context.Context, username string) (*User, error)

	// GetUser looks a user up by username. Returns ErrNotFound if absent.
	GetUser(ctx context.Context, username string) (*User, error)

	// ListUsers returns every user in ascending ID order.
	ListUsers(ctx context.Context) ([]*User, error)

	// CreateSnippet inserts a snippet owned by an existing user, creating the
	// named collection if it does not exist yet. Returns ErrNotFound when the
	// user is missing.
	CreateSnippet(ctx context.Context, in NewSnippetInput) (*Snippet, error)

	// GetSnippet returns the snippet with its collection and user resolved.
	// Returns ErrNotFound if absent.
	GetSnippet(ctx context.Context, id int64) (*Snippet, error)

	// UpdateSnippet applies the supplied fields and returns the result.
	// Returns ErrNotFound if absent.
	UpdateSnippet(ctx context.Context, id int64, update SnippetUpdate) (*Snippet, error)

	// DeleteSnippet removes a snippet. Returns ErrNotFound if absent.
	DeleteSnippet(ctx context.Context, id int64) error

	// SearchSnippets returns the snippets matching every supplied filter in
	// ascending ID order. An empty filter returns every snippet.
	SearchSnippets(ctx context.Context, filter SnippetFilter) ([]*Snippet, error)

	// ListSnippets returns every snippet in ascending ID order.
	ListSnippets(ctx context.Context) ([]*Snippet, error)

	// ListCollections returns every collection in ascending ID order.
	ListCollections(ctx context.Context) ([]*Collection, error)

	// Detach releases the connection pool. Idempotent: multiple calls
	// succeed. After Detach, every operation returns ErrStoreDetached.
	Detach() error
}

// NewSnippetInput carries the fields for Store.CreateSnippet.
type NewSnippetInput struct {
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Language       string `json:"language"`
	Code           string `json:"code"`
	CollectionName string `json:"collection"`
	Username       string `json:"user"`
}

// SnippetFilter narrows SearchSnippets. Empty fields are not applied.
type SnippetFilter struct {
	Language       string
	CollectionName string
	Username       string
}

// Empty reports whether no filter is set.
func (f SnippetFilter) Empty() bool {
	return f.Language == "" && f.CollectionName == "" && f.Username == ""
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)
