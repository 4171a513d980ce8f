package sqlite

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/codemarshall/pkg/apperror"
	"github.com/mesh-intelligence/codemarshall/pkg/types"
)

// Export writes every snippet to path as JSONL, one object per line with the
// collection name and owner's username inlined. Returns the number written.
func (b *Backend) Export(ctx context.Context, path string) (int, error) {
	snippets, err := b.ListSnippets(ctx)
	if err != nil {
		return 0, err
	}

	records := make([]json.RawMessage, 0, len(snippets))
	for _, s := range snippets {
		data, err := json.Marshal(types.NewSnippetInput{
			Title:          s.Title,
			Description:    s.Description,
			Language:       s.Language,
			Code:           s.Code,
			CollectionName: s.CollectionName(),
			Username:       s.Username(),
		})
		if err != nil {
			return 0, fmt.Errorf("marshaling snippet %d: %w", s.ID, err)
		}
		records = append(records, data)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("creating export directory: %w", err)
		}
	}
	if err := writeJSONL(path, records); err != nil {
		return 0, err
	}
	b.log.Info().Str("path", path).Int("snippets", len(records)).Msg("exported")
	return len(records), nil
}

// Import reads a JSONL export and creates each snippet, creating missing
// users first. Blank and malformed lines are skipped. Import stops at the
// first record the store rejects; records before it stay imported.
func (b *Backend) Import(ctx context.Context, path string) (int, error) {
	records, err := readJSONL(path)
	if err != nil {
		return 0, err
	}

	known := make(map[string]bool)
	imported := 0
	for i, raw := range records {
		var in types.NewSnippetInput
		if err := json.Unmarshal(raw, &in); err != nil {
			b.log.Warn().Err(err).Int("record", i+1).Msg("skipping record")
			continue
		}
		if !known[in.Username] {
			if err := b.ensureUser(ctx, in.Username); err != nil {
				return imported, fmt.Errorf("record %d: %w", i+1, err)
			}
			known[in.Username] = true
		}
		if _, err := b.CreateSnippet(ctx, in); err != nil {
			return imported, fmt.Errorf("record %d: %w", i+1, err)
		}
		imported++
	}
	b.log.Info().Str("path", path).Int("snippets", imported).Msg("imported")
	return imported, nil
}

func (b *Backend) ensureUser(ctx context.Context, username string) error {
	_, err := b.GetUser(ctx, username)
	if !errors.Is(err, apperror.ErrNotFound) {
		return err
	}
	_, err = b.CreateUser(ctx, username)
	if errors.Is(err, apperror.ErrDuplicate) {
		return nil
	}
	return err
}

// readJSONL reads a JSONL file and returns each non-empty, parseable line as
// a json.RawMessage. Malformed lines are skipped.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	// Code bodies can be long; allow lines well past the 64 KiB default.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern.
func writeJSONL(path string, records []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("writing record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
