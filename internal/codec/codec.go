// Package codec converts typed records to and from types.Document and provides
// the clone and shallow-merge helpers every driver shares.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Encode converts v to a Document by way of its JSON form. Numbers are kept as
// json.Number so integer fields round-trip without loss.
func Encode(v any) (types.Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return Unmarshal(raw)
}

// Unmarshal parses a JSON object into a Document.
func Unmarshal(raw []byte) (types.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc types.Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidDocument, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: not a JSON object", types.ErrInvalidDocument)
	}
	return doc, nil
}

// Decode converts a Document into a T.
func Decode[T any](doc types.Document) (T, error) {
	var out T
	raw, err := json.Marshal(doc)
	if err != nil {
		return out, fmt.Errorf("decode record: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode record: %w", err)
	}
	return out, nil
}

// DecodeAll converts each Document into a T, preserving order.
func DecodeAll[T any](docs []types.Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := Decode[T](d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Clone returns a deep copy of doc. Nested objects and arrays are copied too,
// so drivers can hand out clones without callers holding a live view of the
// store.
func Clone(doc types.Document) types.Document {
	if doc == nil {
		return nil
	}
	out := make(types.Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the JSON container types a Document can hold. Scalars are
// immutable and returned as is.
func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = cloneValue(e)
		}
		return out
	case types.Document:
		return Clone(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(v))
		for i, e := range v {
			out[i], _ = cloneValue(e).(map[string]any)
		}
		return out
	case []string:
		return slices.Clone(v)
	default:
		return v
	}
}

// CloneAll clones every document in docs.
func CloneAll(docs []types.Document) []types.Document {
	out := make([]types.Document, len(docs))
	for i, d := range docs {
		out[i] = Clone(d)
	}
	return out
}

// CheckSeed reports types.ErrInvalidDocument when a seed row has no id or
// repeats an earlier row's id. Every driver and the registry apply it so a
// seed is accepted or rejected the same way everywhere.
func CheckSeed(docs []types.Document) error {
	seen := make(map[string]int, len(docs))
	for i, d := range docs {
		id := d.ID()
		if id == "" {
			return fmt.Errorf("%w: seed row %d has no id", types.ErrInvalidDocument, i)
		}
		if first, dup := seen[id]; dup {
			return fmt.Errorf("%w: seed rows %d and %d share id %q", types.ErrInvalidDocument, first, i, id)
		}
		seen[id] = i
	}
	return nil
}

// Merge returns a new Document with patch overlaid on current and updatedAt
// stamped with now. The id field is never overwritten.
func Merge(current types.Document, patch types.Patch, now time.Time) types.Document {
	out := Clone(current)
	if out == nil {
		out = make(types.Document, len(patch)+1)
	}
	for k, v := range patch {
		if k == types.FieldID {
			continue
		}
		out[k] = cloneValue(v)
	}
	out[types.FieldUpdatedAt] = Timestamp(now)
	return out
}

// Timestamp formats t the way stored timestamps are written.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// PatchOf encodes v (typically a struct with omitempty fields or a map) into a
// Patch.
func PatchOf(v any) (types.Patch, error) {
	doc, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return types.Patch(doc), nil
}
