package types

import (
	"fmt"
	"strconv"
)

// Field names the core reads or writes on every Document.
const (
	FieldID        = "id"
	FieldOwner     = "userId"
	FieldUpdatedAt = "updatedAt"
)

// Record is any entity with a unique string identifier.
type Record interface {
	RecordID() string
}

// Owned is a Record that belongs to a user. The owner is stored in the userId
// field.
type Owned interface {
	Record
	OwnerID() string
}

// Collection is a typed key naming a collection of records of type T.
// Declaring the key once per domain module keeps name and record type together.
type Collection[T Record] struct {
	name string
}

// NewCollection returns the key for the named collection.
func NewCollection[T Record](name string) Collection[T] {
	return Collection[T]{name: name}
}

// Name returns the collection name used at the Driver boundary.
func (c Collection[T]) Name() string {
	return c.name
}

func (c Collection[T]) String() string {
	return c.name
}

// Document is the field map form of a record as it crosses the Driver boundary.
// Keys are JSON field names.
type Document map[string]any

// ID returns the document id as a string, or "" if absent.
func (d Document) ID() string {
	return StringField(d, FieldID)
}

// Patch is a shallow partial update: each key overwrites the field of the same
// name on the stored document.
type Patch map[string]any

// Matcher is a predicate over stored documents. A nil Matcher matches
// everything.
type Matcher func(Document) bool

// Matches reports whether m accepts d, treating nil as match-all.
func (m Matcher) Matches(d Document) bool {
	return m == nil || m(d)
}

// FieldEquals returns a Matcher accepting documents whose field, rendered as a
// string, equals value.
func FieldEquals(field, value string) Matcher {
	return func(d Document) bool {
		return StringField(d, field) == value
	}
}

// StringField returns the named field rendered as a string. Numbers and other
// scalars are formatted; a missing or nil field yields "".
func StringField(d Document, field string) string {
	v, ok := d[field]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case interface{ String() string }:
		return x.String()
	default:
		return formatScalar(x)
	}
}

func formatScalar(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
