package command

import (
	"context"
	"time"

	"github.com/mesh-intelligence/codemarshall/pkg/apperror"
	"github.com/mesh-intelligence/codemarshall/pkg/types"
)

// fakeStore is an in-memory Store that records every call it receives.
type fakeStore struct {
	calls       []string
	users       []*types.User
	collections []*types.Collection
	snippets    []*types.Snippet
	nextID      map[string]int64
	failWith    error // returned by every call when set
}

var _ types.Store = (*fakeStore)(nil)

func (f *fakeStore) record(op string) error {
	f.calls = append(f.calls, op)
	return f.failWith
}

// id hands out ascending IDs per table, starting at 1.
func (f *fakeStore) id(table string) int64 {
	if f.nextID == nil {
		f.nextID = make(map[string]int64)
	}
	f.nextID[table]++
	return f.nextID[table]
}

func (f *fakeStore) CreateUser(_ context.Context, username string) (*types.User, error) {
	if err := f.record("CreateUser"); err != nil {
		return nil, err
	}
	u, err := types.NewUser(username)
	if err != nil {
		return nil, err
	}
	for _, existing := range f.users {
		if existing.Username == username {
			return nil, apperror.Duplicate("User", "username", username)
		}
	}
	u.ID = f.id("users")
	u.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f.users = append(f.users, u)
	return u, nil
}

func (f *fakeStore) GetUser(_ context.Context, username string) (*types.User, error) {
	if err := f.record("GetUser"); err != nil {
		return nil, err
	}
	return f.user(username)
}

func (f *fakeStore) user(username string) (*types.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, apperror.NotFound("User", "username", username)
}

func (f *fakeStore) ListUsers(context.Context) ([]*types.User, error) {
	if err := f.record("ListUsers"); err != nil {
		return nil, err
	}
	return append([]*types.User{}, f.users...), nil
}

func (f *fakeStore) CreateSnippet(_ context.Context, in types.NewSnippetInput) (*types.Snippet, error) {
	if err := f.record("CreateSnippet"); err != nil {
		return nil, err
	}
	u, err := f.user(in.Username)
	if err != nil {
		return nil, err
	}
	var c *types.Collection
	for _, existing := range f.collections {
		if existing.Name == in.CollectionName {
			c = existing
		}
	}
	if c == nil {
		if c, err = types.NewCollection(in.CollectionName); err != nil {
			return nil, err
		}
		c.ID = f.id("collections")
		f.collections = append(f.collections, c)
	}
	s, err := types.NewSnippet(in.Title, in.Description, in.Language, in.Code, c, u)
	if err != nil {
		return nil, err
	}
	s.ID = f.id("snippets")
	f.snippets = append(f.snippets, s)
	return s, nil
}

func (f *fakeStore) GetSnippet(_ context.Context, id int64) (*types.Snippet, error) {
	if err := f.record("GetSnippet"); err != nil {
		return nil, err
	}
	return f.snippet(id)
}

func (f *fakeStore) snippet(id int64) (*types.Snippet, error) {
	for _, s := range f.snippets {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, apperror.NotFound("Snippet", "ID", id)
}

func (f *fakeStore) UpdateSnippet(_ context.Context, id int64, update types.SnippetUpdate) (*types.Snippet, error) {
	if err := f.record("UpdateSnippet"); err != nil {
		return nil, err
	}
	s, err := f.snippet(id)
	if err != nil {
		return nil, err
	}
	if err := s.Apply(update); err != nil {
		return nil, err
	}
	return s, nil
}

func (f *fakeStore) DeleteSnippet(_ context.Context, id int64) error {
	if err := f.record("DeleteSnippet"); err != nil {
		return err
	}
	for i, s := range f.snippets {
		if s.ID == id {
			f.snippets = append(f.snippets[:i], f.snippets[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("Snippet", "ID", id)
}

func (f *fakeStore) SearchSnippets(_ context.Context, filter types.SnippetFilter) ([]*types.Snippet, error) {
	if err := f.record("SearchSnippets"); err != nil {
		return nil, err
	}
	out := []*types.Snippet{}
	for _, s := range f.snippets {
		if filter.Language != "" && s.Language != filter.Language {
			continue
		}
		if filter.CollectionName != "" && s.CollectionName() != filter.CollectionName {
			continue
		}
		if filter.Username != "" && s.Username() != filter.Username {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) ListSnippets(context.Context) ([]*types.Snippet, error) {
	if err := f.record("ListSnippets"); err != nil {
		return nil, err
	}
	return append([]*types.Snippet{}, f.snippets...), nil
}

func (f *fakeStore) ListCollections(context.Context) ([]*types.Collection, error) {
	if err := f.record("ListCollections"); err != nil {
		return nil, err
	}
	return append([]*types.Collection{}, f.collections...), nil
}

func (f *fakeStore) Detach() error {
	f.calls = append(f.calls, "Detach")
	return nil
}
