package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/codemarshall/pkg/apperror"
	"github.com/mesh-intelligence/codemarshall/pkg/types"
)

// setupBackend attaches a Backend to a fresh SQLite file and detaches it when
// the test ends.
func setupBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend(zerolog.Nop())
	config := testConfig("sqlite:///" + filepath.Join(t.TempDir(), "snippets.db"))
	require.NoError(t, b.Attach(context.Background(), config))
	t.Cleanup(func() { b.Detach() })
	return b
}

func ptr(s string) *string { return &s }

func sortInput(user, collection string) types.NewSnippetInput {
	return types.NewSnippetInput{
		Title:          "Sort",
		Language:       "Python",
		Code:           "sorted(x)",
		CollectionName: collection,
		Username:       user,
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	alice, err := b.CreateUser(ctx, "alice")
	require.NoError(t, err)
	assert.NotZero(t, alice.ID)
	assert.False(t, alice.CreatedAt.IsZero())

	_, err = b.CreateUser(ctx, "alice")
	assert.ErrorIs(t, err, apperror.ErrDuplicate)
	assert.EqualError(t, err, `User with username "alice" already exists.`)

	_, err = b.CreateUser(ctx, "a b")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	bob, err := b.CreateUser(ctx, "bob")
	require.NoError(t, err)
	assert.Greater(t, bob.ID, alice.ID)

	got, err := b.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.True(t, alice.CreatedAt.Equal(got.CreatedAt), "created_at round-trips")

	_, err = b.GetUser(ctx, "carol")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	users, err := b.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)
}

func TestCreateSnippet(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	_, err := b.CreateUser(ctx, "alice")
	require.NoError(t, err)

	s, err := b.CreateSnippet(ctx, sortInput("alice", "Algorithms"))
	require.NoError(t, err)
	assert.NotZero(t, s.ID)
	assert.Equal(t, "Algorithms", s.CollectionName())
	assert.Equal(t, "alice", s.Username())
	assert.NotZero(t, s.Collection.ID)
	assert.NotZero(t, s.User.ID)

	got, err := b.GetSnippet(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestCreateSnippetReusesCollection(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	_, err := b.CreateUser(ctx, "alice")
	require.NoError(t, err)

	first, err := b.CreateSnippet(ctx, sortInput("alice", "Algorithms"))
	require.NoError(t, err)
	second, err := b.CreateSnippet(ctx, sortInput("alice", "Algorithms"))
	require.NoError(t, err)
	assert.Equal(t, first.Collection.ID, second.Collection.ID)

	collections, err := b.ListCollections(ctx)
	require.NoError(t, err)
	assert.Len(t, collections, 1)
}

func TestCreateSnippetConcurrentCollection(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	_, err := b.CreateUser(ctx, "alice")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.CreateSnippet(ctx, sortInput("alice", "Shared"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	collections, err := b.ListCollections(ctx)
	require.NoError(t, err)
	assert.Len(t, collections, 1)
	snippets, err := b.ListSnippets(ctx)
	require.NoError(t, err)
	assert.Len(t, snippets, 8)
}

func TestCreateSnippetFailures(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	_, err := b.CreateUser(ctx, "alice")
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(in *types.NewSnippetInput)
		wantErr error
		field   string
	}{
		{name: "missing user", mutate: func(in *types.NewSnippetInput) { in.Username = "ghost" }, wantErr: apperror.ErrNotFound, field: "username"},
		{name: "bad title", mutate: func(in *types.NewSnippetInput) { in.Title = "ab" }, wantErr: apperror.ErrValidation, field: "title"},
		{name: "bad language", mutate: func(in *types.NewSnippetInput) { in.Language = "C#" }, wantErr: apperror.ErrValidation, field: "language"},
		{name: "empty code", mutate: func(in *types.NewSnippetInput) { in.Code = "" }, wantErr: apperror.ErrValidation, field: "code"},
		{name: "long code", mutate: func(in *types.NewSnippetInput) { in.Code = strings.Repeat("x", 5001) }, wantErr: apperror.ErrValidation, field: "code"},
		{name: "bad collection", mutate: func(in *types.NewSnippetInput) { in.CollectionName = "a!" }, wantErr: apperror.ErrValidation, field: "collection"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := sortInput("alice", "Algorithms")
			tt.mutate(&in)
			_, err := b.CreateSnippet(ctx, in)
			require.ErrorIs(t, err, tt.wantErr)
			var appErr *apperror.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}

	// Nothing was written by the failed attempts.
	snippets, err := b.ListSnippets(ctx)
	require.NoError(t, err)
	assert.Empty(t, snippets)
	collections, err := b.ListCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, collections)
}

func TestUpdateSnippet(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	_, err := b.CreateUser(ctx, "alice")
	require.NoError(t, err)
	s, err := b.CreateSnippet(ctx, sortInput("alice", "Algorithms"))
	require.NoError(t, err)

	updated, err := b.UpdateSnippet(ctx, s.ID, types.SnippetUpdate{Title: ptr("Quick sort"), Description: ptr("in place")})
	require.NoError(t, err)
	assert.Equal(t, "Quick sort", updated.Title)
	assert.Equal(t, "in place", updated.Description)
	assert.Equal(t, "Python", updated.Language, "unsupplied fields are unchanged")

	got, err := b.GetSnippet(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	// A rejected field leaves the stored row untouched.
	_, err = b.UpdateSnippet(ctx, s.ID, types.SnippetUpdate{Title: ptr("Merge sort"), Language: ptr("C++")})
	assert.ErrorIs(t, err, apperror.ErrValidation)
	got, err = b.GetSnippet(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quick sort", got.Title)

	// Clearing the description stores NULL and reads back empty.
	_, err = b.UpdateSnippet(ctx, s.ID, types.SnippetUpdate{Description: ptr("")})
	require.NoError(t, err)
	got, err = b.GetSnippet(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Description)

	noop, err := b.UpdateSnippet(ctx, s.ID, types.SnippetUpdate{})
	require.NoError(t, err)
	assert.Equal(t, got, noop)

	_, err = b.UpdateSnippet(ctx, 999, types.SnippetUpdate{Title: ptr("Nope")})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.EqualError(t, err, "Snippet with ID 999 not found.")
}

func TestDeleteSnippet(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	_, err := b.CreateUser(ctx, "alice")
	require.NoError(t, err)
	s, err := b.CreateSnippet(ctx, sortInput("alice", "Algorithms"))
	require.NoError(t, err)

	require.NoError(t, b.DeleteSnippet(ctx, s.ID))

	_, err = b.GetSnippet(ctx, s.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.ErrorIs(t, b.DeleteSnippet(ctx, s.ID), apperror.ErrNotFound)

	// The collection and owner outlive the snippet.
	collections, err := b.ListCollections(ctx)
	require.NoError(t, err)
	assert.Len(t, collections, 1)
	_, err = b.GetUser(ctx, "alice")
	assert.NoError(t, err)
}

func TestSearchSnippets(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	for _, name := range []string{"alice", "bob"} {
		_, err := b.CreateUser(ctx, name)
		require.NoError(t, err)
	}

	seed := []types.NewSnippetInput{
		{Title: "Sort", Language: "Python", Code: "sorted(x)", CollectionName: "Algorithms", Username: "alice"},
		{Title: "Map", Language: "Go", Code: "m := map[string]int{}", CollectionName: "Algorithms", Username: "bob"},
		{Title: "Fetch", Language: "Python", Code: "requests.get(u)", CollectionName: "Web", Username: "bob"},
	}
	for _, in := range seed {
		_, err := b.CreateSnippet(ctx, in)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter types.SnippetFilter
		want   []string
	}{
		{name: "no filter", filter: types.SnippetFilter{}, want: []string{"Sort", "Map", "Fetch"}},
		{name: "language", filter: types.SnippetFilter{Language: "Python"}, want: []string{"Sort", "Fetch"}},
		{name: "collection", filter: types.SnippetFilter{CollectionName: "Algorithms"}, want: []string{"Sort", "Map"}},
		{name: "user", filter: types.SnippetFilter{Username: "bob"}, want: []string{"Map", "Fetch"}},
		{name: "conjunction", filter: types.SnippetFilter{Language: "Python", Username: "bob"}, want: []string{"Fetch"}},
		{name: "unknown value", filter: types.SnippetFilter{Language: "Cobol"}, want: []string{}},
		{name: "unknown user", filter: types.SnippetFilter{Username: "ghost"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.SearchSnippets(ctx, tt.filter)
			require.NoError(t, err)
			titles := []string{}
			for _, s := range got {
				titles = append(titles, s.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}

	all, err := b.ListSnippets(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Less(t, all[0].ID, all[1].ID)
}

func TestListsEmptyStore(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	snippets, err := b.ListSnippets(ctx)
	require.NoError(t, err)
	assert.NotNil(t, snippets)
	assert.Empty(t, snippets)

	collections, err := b.ListCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, collections)

	users, err := b.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}
