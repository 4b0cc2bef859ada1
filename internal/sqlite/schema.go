// Package sqlite implements a durable types.Driver that stores each document
// as a JSON payload row in an embedded SQLite database.
package sqlite

// Schema DDL. Records keep insertion order through seq; collections marks
// which collections exist so seeding stays idempotent even for empty ones.
const (
	createCollections = `CREATE TABLE IF NOT EXISTS collections (
    name TEXT PRIMARY KEY,
    created_at TEXT NOT NULL
);`

	createRecords = `CREATE TABLE IF NOT EXISTS records (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    payload TEXT NOT NULL,
    UNIQUE (collection, id)
);`

	idxRecordsCollection = `CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection, seq);`
)

// schemaDDL lists every statement run when a database is opened.
var schemaDDL = []string{
	createCollections,
	createRecords,
	idxRecordsCollection,
}
