package sqlite

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/codemarshall/pkg/apperror"
	"github.com/mesh-intelligence/codemarshall/pkg/types"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := setupBackend(t)
	_, err := src.CreateUser(ctx, "alice")
	require.NoError(t, err)
	_, err = src.CreateUser(ctx, "bob")
	require.NoError(t, err)

	seed := []types.NewSnippetInput{
		{Title: "Sort", Description: "built-in", Language: "Python", Code: "sorted(x)", CollectionName: "Algorithms", Username: "alice"},
		{Title: "Multi line", Language: "Go", Code: "func main() {\n\tprintln(\"hi\")\n}", CollectionName: "Go Tricks", Username: "bob"},
	}
	for _, in := range seed {
		_, err := src.CreateSnippet(ctx, in)
		require.NoError(t, err)
	}

	path := filepath.Join(t.TempDir(), "out", "snippets.jsonl")
	n, err := src.Export(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	var first types.NewSnippetInput
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, seed[0], first)

	dst := setupBackend(t)
	n, err = dst.Import(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := dst.ListSnippets(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i, s := range got {
		assert.Equal(t, seed[i].Title, s.Title)
		assert.Equal(t, seed[i].Description, s.Description)
		assert.Equal(t, seed[i].Code, s.Code)
		assert.Equal(t, seed[i].CollectionName, s.CollectionName())
		assert.Equal(t, seed[i].Username, s.Username())
	}

	users, err := dst.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestImportSkipsMalformedLines(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	path := filepath.Join(t.TempDir(), "in.jsonl")
	content := strings.Join([]string{
		`{"title":"Sort","language":"Python","code":"sorted(x)","collection":"Algorithms","user":"alice"}`,
		``,
		`{not json`,
		`{"title":"Fetch","language":"Python","code":"get(u)","collection":"Web","user":"alice"}`,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	n, err := b.Import(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestImportStopsAtRejectedRecord(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	path := filepath.Join(t.TempDir(), "in.jsonl")
	content := strings.Join([]string{
		`{"title":"Sort","language":"Python","code":"sorted(x)","collection":"Algorithms","user":"alice"}`,
		`{"title":"x","language":"Python","code":"y","collection":"Algorithms","user":"alice"}`,
		`{"title":"Fetch","language":"Python","code":"get(u)","collection":"Web","user":"alice"}`,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	n, err := b.Import(ctx, path)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Contains(t, err.Error(), "record 2")
	assert.Equal(t, 1, n)
}

func TestImportMissingFile(t *testing.T) {
	b := setupBackend(t)
	_, err := b.Import(context.Background(), filepath.Join(t.TempDir(), "absent.jsonl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
