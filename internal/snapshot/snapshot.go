// Package snapshot reads and writes collections as JSONL files, one file per
// collection named <collection>.jsonl. Snapshots feed seed data to the
// registry and capture a driver's contents for later reuse.
package snapshot

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mesh-intelligence/pantry/internal/codec"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Ext is the file extension of a collection snapshot.
const Ext = ".jsonl"

// ReadFile reads a JSONL file. Blank lines and lines that are not JSON
// objects are skipped.
func ReadFile(path string) ([]types.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	docs := []types.Document{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		doc, err := codec.Unmarshal(line)
		if err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return docs, nil
}

// WriteFile atomically writes docs to path using the temp-file, fsync, rename
// pattern.
func WriteFile(path string, docs []types.Document) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, doc := range docs {
		// Encode appends the newline.
		if err := enc.Encode(doc); err != nil {
			return fail(fmt.Errorf("writing record: %w", err))
		}
	}
	if err := w.Flush(); err != nil {
		return fail(fmt.Errorf("flushing buffer: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp file: %w", err))
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

// Load reads every *.jsonl file in dir, keyed by collection name.
func Load(dir string) (map[string][]types.Document, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+Ext))
	if err != nil {
		return nil, err
	}
	out := make(map[string][]types.Document, len(matches))
	for _, path := range matches {
		docs, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		out[strings.TrimSuffix(filepath.Base(path), Ext)] = docs
	}
	return out, nil
}

// Seeder accepts seed data; *registry.Registry satisfies it.
type Seeder interface {
	RegisterSeed(ctx context.Context, collection string, docs []types.Document) error
}

// Restore registers every snapshot in dir as seed data, in name order, and
// returns the collections registered.
func Restore(ctx context.Context, dir string, into Seeder) ([]string, error) {
	all, err := Load(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := into.RegisterSeed(ctx, name, all[name]); err != nil {
			return nil, fmt.Errorf("restore %s: %w", name, err)
		}
	}
	return names, nil
}

// Dump reads each collection from d with no simulated latency and writes it
// to dir.
func Dump(ctx context.Context, d types.Driver, dir string, collections []string) error {
	for _, name := range collections {
		env := d.Get(ctx, name, nil, types.WithDelay(0))
		if !env.OK() {
			return fmt.Errorf("dump %s: %w", name, env.Err())
		}
		if err := WriteFile(filepath.Join(dir, name+Ext), env.Data); err != nil {
			return fmt.Errorf("dump %s: %w", name, err)
		}
	}
	return nil
}
